package imdb

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

const DefaultSiteRoot = "https://www.imdb.com"

// Provider 实现 IMDb 榜单页与详情页的解析。
//
// 约束：
// - 只解析，不抓取（Fetcher 由上层注入）
// - ParseListing/ParseDetail 是纯函数：相同 HTML => 相同结果
// - 任一字段缺失或无法解析 => 整条记录失败，不产生半条记录
type Provider struct {
	// SiteRoot 为空时使用 https://www.imdb.com。
	// 榜单 URL 与详情页链接都基于它拼接，便于测试时指向 httptest 服务。
	SiteRoot string
}

func (Provider) Name() string { return "imdb" }

func (p Provider) siteRoot() string {
	u := strings.TrimSpace(p.SiteRoot)
	if u == "" {
		return DefaultSiteRoot
	}
	return strings.TrimRight(u, "/")
}

// ListingURL 返回某年按美国票房倒序的片单页：
// <root>/search/title/?title_type=feature&year=Y-01-01,Y-12-31&sort=boxoffice_gross_us,desc[&start=S&ref_=adv_nxt]
func (p Provider) ListingURL(ref domain.ListingPageRef) string {
	y := strconv.Itoa(ref.Year)
	u := p.siteRoot() + "/search/title/?title_type=feature&year=" + y + "-01-01," + y + "-12-31&sort=boxoffice_gross_us,desc"
	if ref.Start > 1 {
		u += "&start=" + strconv.Itoa(ref.Start) + "&ref_=adv_nxt"
	}
	return u
}

// ParseListing 找到每个排名序号标记，读取其后一个兄弟元素的 href，拼接站点根地址。
// 保持页面顺序，不去重；任一标记缺少 href => 整页失败。
func (p Provider) ParseListing(html []byte, pageURL string) ([]domain.DetailPageRef, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	root := p.siteRoot()
	var (
		out     []domain.DetailPageRef
		missing = -1
	)
	doc.Find("span.lister-item-index.unbold.text-primary").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, ok := s.Next().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			missing = i
			return false
		}
		out = append(out, domain.DetailPageRef(joinRoot(root, href)))
		return true
	})
	if missing >= 0 {
		return nil, fmt.Errorf("第 %d 个排名标记后没有链接：%s", missing+1, pageURL)
	}
	return out, nil
}

// ParseDetail 依固定顺序调用各字段抽取器并组装记录。
func (Provider) ParseDetail(html []byte, pageURL string) (domain.MovieRecord, error) {
	if len(html) == 0 {
		return domain.MovieRecord{}, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.MovieRecord{}, err
	}

	var rec domain.MovieRecord

	subtext := doc.Find("div.subtext").First()
	if subtext.Length() == 0 {
		return domain.MovieRecord{}, &FieldError{Field: "content_rating", Err: ErrRegionMissing}
	}
	rec.ContentRating = CleanContentRating(subtext.Text())

	release := subtext.Find("a[title='See more release dates']").First()
	if release.Length() == 0 {
		return domain.MovieRecord{}, &FieldError{Field: "release_month", Err: ErrRegionMissing}
	}
	rec.ReleaseMonth = ReleaseMonth(release.Text())

	title := subtext.Prev()
	if title.Length() == 0 {
		return domain.MovieRecord{}, &FieldError{Field: "title", Err: ErrRegionMissing}
	}
	rec.Title = strings.TrimSpace(title.Text())

	times := doc.Find("time")
	if times.Length() < 2 {
		return domain.MovieRecord{}, &FieldError{Field: "runtime", Err: ErrRegionMissing}
	}
	runtime, err := DigitsInt(times.Eq(1).Text())
	if err != nil {
		return domain.MovieRecord{}, &FieldError{Field: "runtime", Err: err}
	}
	rec.RuntimeM = int(runtime)

	blocks, err := boxOfficeBlocks(doc)
	if err != nil {
		return domain.MovieRecord{}, &FieldError{Field: "box_office", Err: err}
	}
	if rec.Budget, err = fromBlock(blocks, labelBudget, CleanBudget); err != nil {
		return domain.MovieRecord{}, &FieldError{Field: "budget", Err: err}
	}
	if rec.OpeningWeekend, err = fromBlock(blocks, labelOpening, CleanOpeningWeekend); err != nil {
		return domain.MovieRecord{}, &FieldError{Field: "opening_weekend", Err: err}
	}
	if rec.DomesticGross, err = fromBlock(blocks, labelDomestic, DigitsInt); err != nil {
		return domain.MovieRecord{}, &FieldError{Field: "domestic_gross", Err: err}
	}
	if rec.WorldwideGross, err = fromBlock(blocks, labelWorldwide, DigitsInt); err != nil {
		return domain.MovieRecord{}, &FieldError{Field: "worldwide_gross", Err: err}
	}

	rating := doc.Find("div.ratingValue").First()
	if rating.Length() == 0 {
		return domain.MovieRecord{}, &FieldError{Field: "user_rating", Err: ErrRegionMissing}
	}
	if rec.UserRating, err = CleanUserRating(rating.Text()); err != nil {
		return domain.MovieRecord{}, &FieldError{Field: "user_rating", Err: err}
	}

	rec.DeriveFlags()
	return rec, nil
}

const (
	labelBudget    = "budget"
	labelOpening   = "opening_weekend"
	labelDomestic  = "domestic_gross"
	labelWorldwide = "worldwide_gross"
)

// boxOfficeBlocks 以 "Box Office" 小标题为锚点，按 h4 标签收集其后直到下一个 h3 的各块全文。
// 同一标签只取第一次出现。
func boxOfficeBlocks(doc *goquery.Document) (map[string]string, error) {
	heads := doc.Find("h3.subheading")
	if heads.Length() == 0 {
		return nil, ErrRegionMissing
	}
	anchor := heads.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "Box Office")
	}).First()
	if anchor.Length() == 0 {
		anchor = heads.First()
	}

	blocks := make(map[string]string, 4)
	anchor.NextUntil("h3").Each(func(_ int, s *goquery.Selection) {
		h4 := s.Find("h4").First()
		if h4.Length() == 0 {
			return
		}
		key := classifyLabel(h4.Text())
		if key == "" {
			return
		}
		if _, ok := blocks[key]; ok {
			return
		}
		blocks[key] = s.Text()
	})
	return blocks, nil
}

func classifyLabel(h4 string) string {
	label := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(h4), ":"))
	switch {
	case label == "Budget":
		return labelBudget
	case strings.HasPrefix(label, "Opening Weekend"):
		return labelOpening
	case strings.Contains(label, "Worldwide Gross"):
		return labelWorldwide
	case strings.HasPrefix(label, "Gross"):
		return labelDomestic
	default:
		return ""
	}
}

func fromBlock(blocks map[string]string, key string, clean func(string) (int64, error)) (int64, error) {
	text, ok := blocks[key]
	if !ok {
		return 0, fmt.Errorf("%w：没有 %s 标签", ErrRegionMissing, key)
	}
	return clean(text)
}

func joinRoot(root, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return root + href
}

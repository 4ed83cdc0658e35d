package domain

// PageSize 是单个榜单页最多列出的条目数（站点固定）。
const PageSize = 50

// ListingPageRef 标识一个榜单页：某一年 + 起始排名（1, 51, ...）。
type ListingPageRef struct {
	Year  int
	Start int
}

// DetailPageRef 是某部影片详情页的完整 URL（站点根 + 榜单页上的相对 href）。
type DetailPageRef string

// DefaultListings 枚举 [first, last] 年份的榜单页：年份倒序，年内按页序。
// 每年 pagesPerYear 页，起始排名依次为 1, 51, 101 ...
func DefaultListings(first, last, pagesPerYear int) []ListingPageRef {
	if first > last || pagesPerYear < 1 {
		return nil
	}
	out := make([]ListingPageRef, 0, (last-first+1)*pagesPerYear)
	for y := last; y >= first; y-- {
		for p := 0; p < pagesPerYear; p++ {
			out = append(out, ListingPageRef{Year: y, Start: p*PageSize + 1})
		}
	}
	return out
}

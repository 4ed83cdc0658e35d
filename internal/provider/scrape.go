package provider

import (
	"context"
	"fmt"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// Error 是抓取阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Stage string // StageFetch 或 StageParse
	URL   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stage=%s url=%s: %v", e.Stage, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FetchListing 抓取并解析一个榜单页，返回该页的详情页链接（页面顺序）。
func FetchListing(ctx context.Context, p Provider, f Fetcher, ref domain.ListingPageRef) ([]domain.DetailPageRef, string, error) {
	u := p.ListingURL(ref)
	html, err := f.Fetch(ctx, u)
	if err != nil {
		return nil, u, &Error{Stage: StageFetch, URL: u, Err: err}
	}
	links, err := p.ParseListing(html, u)
	if err != nil {
		return nil, u, &Error{Stage: StageParse, URL: u, Err: err}
	}
	return links, u, nil
}

// FetchDetail 抓取并解析一个详情页。
func FetchDetail(ctx context.Context, p Provider, f Fetcher, ref domain.DetailPageRef) (domain.MovieRecord, error) {
	u := string(ref)
	html, err := f.Fetch(ctx, u)
	if err != nil {
		return domain.MovieRecord{}, &Error{Stage: StageFetch, URL: u, Err: err}
	}
	rec, err := p.ParseDetail(html, u)
	if err != nil {
		return domain.MovieRecord{}, &Error{Stage: StageParse, URL: u, Err: err}
	}
	return rec, nil
}

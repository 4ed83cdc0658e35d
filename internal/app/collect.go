package app

import (
	"context"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/provider"
)

// CollectLinks 依次抓取每个榜单页并收集详情页链接。
//
// - 链接顺序 = 榜单页顺序，再按页内排名；不去重、不过滤
// - 每个榜单页是独立的失败边界：失败页贡献 0 个链接，记为失败条目，继续下一页
// - onLink 在每收集到一个链接后调用（参数为累计数量），可为 nil
// - ctx 取消后不再抓取剩余榜单页
func CollectLinks(ctx context.Context, p provider.Provider, f provider.Fetcher, refs []domain.ListingPageRef, onLink func(n int)) ([]domain.DetailPageRef, []domain.ItemResult) {
	links := make([]domain.DetailPageRef, 0, len(refs)*domain.PageSize)
	items := make([]domain.ItemResult, 0, len(refs))

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}

		item := domain.ItemResult{
			Kind:   domain.KindListing,
			URL:    p.ListingURL(ref),
			Status: domain.StatusOK,
		}
		var page []domain.DetailPageRef
		err := Guard(func() error {
			var e error
			page, _, e = provider.FetchListing(ctx, p, f, ref)
			return e
		})
		if err != nil {
			FillError(&item, err)
			items = append(items, item)
			continue
		}

		item.Links = len(page)
		items = append(items, item)
		for _, l := range page {
			links = append(links, l)
			if onLink != nil {
				onLink(len(links))
			}
		}
	}
	return links, items
}

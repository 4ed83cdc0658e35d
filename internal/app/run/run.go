package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/John-Robertt/boxoffice/internal/app"
	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/infra/archive"
	"github.com/John-Robertt/boxoffice/internal/infra/httpx"
	"github.com/John-Robertt/boxoffice/internal/provider"
	"github.com/John-Robertt/boxoffice/internal/provider/imdb"
	"github.com/John-Robertt/boxoffice/internal/snapshot"
)

// Deps 是一次运行的可注入依赖；零值字段由 eff 构造默认实现。
type Deps struct {
	Provider provider.Provider
	Fetcher  provider.Fetcher
}

// Result 是一次运行的产物：对外稳定的 RunReport + 成功抽取的记录（尝试顺序）。
type Result struct {
	Report  domain.RunReport
	Records []domain.MovieRecord
}

// Execute 执行一次 scrape，并返回对外稳定的 RunReport 与记录。
// 该函数尽量把错误“降级”为 item 级失败（单条失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps) Result {
	return ExecuteWithObserver(ctx, eff, deps, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) Result {
	refs := domain.DefaultListings(eff.FirstYear, eff.LastYear, eff.PagesPerYear)
	if obs != nil {
		obs.OnStart(eff, len(refs))
	}

	rr := domain.RunReport{
		OutDir:    eff.OutDir,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, len(refs)*(domain.PageSize+1)),
	}

	if deps.Provider == nil {
		deps.Provider = imdb.Provider{SiteRoot: eff.SiteRoot}
	}
	if deps.Fetcher == nil {
		f, err := NewFetcher(eff)
		if err != nil {
			rr.Items = append(rr.Items, syntheticFailed(domain.KindSetup, domain.ErrCodeConfigInvalid, fmt.Sprintf("初始化抓取器失败：%v", err)))
			rr.FinishedAt = time.Now().UTC()
			rr.Finalize()
			return Result{Report: rr}
		}
		deps.Fetcher = f
	}

	// 阶段 1：收集详情页链接（每个榜单页独立失败）。
	collectStarted := time.Now()
	expected := len(refs) * domain.PageSize
	var onLink func(int)
	if obs != nil {
		onLink = func(n int) { obs.OnLinkCollected(n, expected) }
	}
	links, listingItems := app.CollectLinks(ctx, deps.Provider, deps.Fetcher, refs, onLink)
	rr.Items = append(rr.Items, listingItems...)

	if obs != nil {
		failed := 0
		for _, it := range listingItems {
			if it.Status == domain.StatusFailed {
				failed++
			}
		}
		obs.OnPhaseDone("collect", map[string]any{
			"pages":  len(listingItems),
			"failed": failed,
			"links":  len(links),
		}, time.Since(collectStarted))
	}

	// 阶段 2：逐个抽取详情页（顺序、单次、每条独立失败）。
	scrapeStarted := time.Now()
	records := make([]domain.MovieRecord, 0, len(links))
	okCount, failCount := 0, 0
	canceled := false
	for _, ref := range links {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		oneStarted := time.Now()
		item, rec, ok := scrapeOne(ctx, deps, ref)
		rr.Items = append(rr.Items, item)
		if ok {
			records = append(records, rec)
			okCount++
		} else {
			failCount++
		}
		if obs != nil {
			obs.OnItemDone(okCount+failCount, len(links), item, time.Since(oneStarted))
		}
	}
	if obs != nil {
		obs.OnPhaseDone("scrape", map[string]any{
			"attempted": okCount + failCount,
			"succeeded": okCount,
			"failed":    failCount,
			"canceled":  canceled,
		}, time.Since(scrapeStarted))
	}

	// 阶段 3：一次性写出 snapshot。
	snapStarted := time.Now()
	path, err := snapshot.Write(eff.OutDir, eff.Format, records)
	if err != nil {
		name, _ := snapshot.FileName(eff.Format)
		rr.Items = append(rr.Items, syntheticFailed(domain.KindSnapshot, domain.ErrCodeIOFailed, fmt.Sprintf("写入 %s 失败：%v", name, err)))
	} else {
		rr.Snapshot = path
	}
	if obs != nil {
		obs.OnPhaseDone("snapshot", map[string]any{
			"records": len(records),
			"path":    rr.Snapshot,
		}, time.Since(snapStarted))
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return Result{Report: rr, Records: records}
}

// scrapeOne 是单个详情页的失败边界：任何错误（含 panic）=> 失败条目，不产生半条记录。
func scrapeOne(ctx context.Context, deps Deps, ref domain.DetailPageRef) (domain.ItemResult, domain.MovieRecord, bool) {
	item := domain.ItemResult{
		Kind:   domain.KindDetail,
		URL:    string(ref),
		Status: domain.StatusOK,
	}
	var rec domain.MovieRecord
	err := app.Guard(func() error {
		var e error
		rec, e = provider.FetchDetail(ctx, deps.Provider, deps.Fetcher, ref)
		return e
	})
	if err != nil {
		app.FillError(&item, err)
		slog.Debug("detail failed", "url", item.URL, "code", item.ErrorCode, "err", err)
		return item, domain.MovieRecord{}, false
	}
	return item, rec, true
}

// NewFetcher 按配置组装 Fetcher：
// - replay：只读归档
// - 否则：httpx client + resty；设置了 archive_dir 时同时录制
func NewFetcher(eff config.EffectiveConfig) (provider.Fetcher, error) {
	if eff.Replay {
		return archive.New(eff.ArchiveDir, true), nil
	}

	c, err := httpx.NewClient(httpx.Options{
		ProxyURL: eff.ProxyURL,
		RetryMax: eff.RetryMax,
		Timeout:  eff.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("proxy.url 无效：%w", err)
	}
	hf, err := provider.NewHTTPFetcher(c)
	if err != nil {
		return nil, err
	}
	if eff.ArchiveDir == "" {
		return hf, nil
	}
	return archive.Recorder{Next: hf, Store: archive.New(eff.ArchiveDir, false)}, nil
}

func syntheticFailed(kind, code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Kind:      kind,
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

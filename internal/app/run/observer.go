package run

import (
	"time"

	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何进度输出；诊断信息只走 slog debug。
// - 事件按发生顺序在调用 ExecuteWithObserver 的 goroutine 上同步发出。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用；listingPages 为本次要抓取的榜单页数。
	OnStart(eff config.EffectiveConfig, listingPages int)
	// OnPhaseDone 在阶段结束时调用（collect / scrape / snapshot）。
	// scrape 阶段的 fields["canceled"] 表示是否因 ctx 取消而提前结束。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnLinkCollected 在每收集到一个详情页链接后调用；expected 为榜单页数 × 每页条数。
	OnLinkCollected(n, expected int)
	// OnItemDone 在某个详情页处理完成时调用（用于每条结果的一行输出）。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}

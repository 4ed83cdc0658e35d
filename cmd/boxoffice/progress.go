package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/boxoffice/internal/app/run"
	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// linkEvery：收集链接阶段每隔多少条打印一行。
const linkEvery = 50

// progressUI 把 run 层事件渲染成逐行进度（写 stderr，不污染 stdout 的 JSON）。
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig, listingPages int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.startedAt = now

	mode := "live"
	if eff.Replay {
		mode = "replay"
	}
	fmt.Fprintf(p.w, "[%s] boxoffice scrape (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  site_root: %s\n", truncate(eff.SiteRoot, 120))
	fmt.Fprintf(p.w, "  years: %d-%d pages_per_year=%d listing_pages=%d\n", eff.FirstYear, eff.LastYear, eff.PagesPerYear, listingPages)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  timeout: %s retry_max=%d\n", eff.Timeout, eff.RetryMax)
	if eff.ArchiveDir != "" {
		fmt.Fprintf(p.w, "  archive: %s\n", eff.ArchiveDir)
	}
	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  out: %s (format=%s)\n", eff.OutDir, eff.Format)
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "开始收集详情页链接...")
}

func (p *progressUI) OnLinkCollected(n, expected int) {
	if n%linkEvery != 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "收集链接 %d/%d\n", n, expected)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "collect":
		fmt.Fprintf(p.w, "收集: pages=%d failed=%d links=%d (%s)\n\n",
			intField(fields, "pages"), intField(fields, "failed"), intField(fields, "links"), formatShortDuration(dur),
		)
	case "scrape":
		note := ""
		if c, _ := fields["canceled"].(bool); c {
			note = " 已取消"
		}
		fmt.Fprintf(p.w, "\n抽取: attempted=%d succeeded=%d failed=%d%s (%s)\n",
			intField(fields, "attempted"), intField(fields, "succeeded"), intField(fields, "failed"), note, formatShortDuration(dur),
		)
	case "snapshot":
		path, _ := fields["path"].(string)
		if path == "" {
			path = "<未写出>"
		}
		fmt.Fprintf(p.w, "快照: records=%d path=%s (%s)\n",
			intField(fields, "records"), path, formatShortDuration(dur),
		)
		fmt.Fprintf(p.w, "总耗时: %s\n", formatElapsed(time.Since(p.startedAt)))
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.Status == domain.StatusOK {
		fmt.Fprintf(p.w, "[%d/%d] OK %s (%s)\n", idx, total, res.URL, formatShortDuration(dur))
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] FAIL %s %s: %s (%s)\n",
		idx, total, res.URL, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
	)
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}

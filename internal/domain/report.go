package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	KindListing = "listing"
	KindDetail  = "detail"
	// KindSnapshot 是写 snapshot 失败时的合成条目。
	KindSnapshot = "snapshot"
	// KindSetup 是运行开始前（例如构造抓取器）失败时的合成条目。
	KindSetup = "setup"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeParseFailed   = "parse_failed"
	ErrCodeIOFailed      = "io_failed"
	ErrCodeConfigInvalid = "config_invalid"
)

// RunReport 是对外稳定输出（report.json）的结构。
type RunReport struct {
	OutDir   string `json:"out_dir"`
	Snapshot string `json:"snapshot"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	ListingPages  int `json:"listing_pages"`
	ListingFailed int `json:"listing_failed"`
	Links         int `json:"links"`

	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type ItemResult struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	// Links 仅对 listing 条目有意义：该页贡献的详情页数量。
	Links int `json:"links,omitempty"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 items 计算得出
//
// items 保持尝试顺序，不排序。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Kind {
		case KindListing:
			s.ListingPages++
			if it.Status == StatusFailed {
				s.ListingFailed++
			}
			s.Links += it.Links
		case KindDetail:
			s.Attempted++
			if it.Status == StatusOK {
				s.Succeeded++
			} else {
				s.Failed++
			}
		}
	}
	r.Summary = s
}

// HasFailures 表示本次运行是否存在任何失败条目（用于退出码）。
func (r RunReport) HasFailures() bool {
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			return true
		}
	}
	return false
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}

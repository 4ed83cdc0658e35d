package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/infra/archive"
	"github.com/John-Robertt/boxoffice/internal/provider"
	"github.com/John-Robertt/boxoffice/internal/provider/imdb"
)

// PanicError 是失败边界内 panic 转成的错误。
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Guard 是单个工作单元（一个榜单页或一个详情页）的失败边界：
// fn 的任何错误（包括 panic）都被转成 error 返回，调用方记录后继续下一个单元。
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// FillError 把错误归类为 fetch_failed / parse_failed，并生成可操作的 error_msg。
func FillError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed

	var pe *provider.Error
	if errors.As(err, &pe) {
		switch pe.Stage {
		case provider.StageFetch:
			item.ErrorCode = domain.ErrCodeFetchFailed
			item.ErrorMsg = humanizeFetchError(pe.Err)
		case provider.StageParse:
			item.ErrorCode = domain.ErrCodeParseFailed
			item.ErrorMsg = humanizeParseError(pe.Err)
		default:
			item.ErrorCode = domain.ErrCodeFetchFailed
			item.ErrorMsg = fmt.Sprintf("%s 失败：%v", pe.Stage, pe.Err)
		}
		return
	}

	var pn *PanicError
	if errors.As(err, &pn) {
		item.ErrorCode = domain.ErrCodeParseFailed
		item.ErrorMsg = fmt.Sprintf("处理该页面时发生 panic：%v", pn.Value)
		return
	}

	item.ErrorCode = domain.ErrCodeFetchFailed
	item.ErrorMsg = err.Error()
}

func humanizeFetchError(err error) string {
	if err == nil {
		return "抓取失败"
	}

	if errors.Is(err, archive.ErrNotArchived) {
		return "回放模式下该页面不在归档中。请先在线运行一次并指定 --archive。"
	}

	// HTTP 非 2xx：尽量给出可操作提示（反爬/限流是最常见问题）。
	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		loc := strings.TrimSpace(hs.Location)
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("站点返回 HTTP %d（可能触发反爬/限流）。建议稍后重试或配置 proxy.url。", hs.StatusCode)
		case 404:
			return "站点返回 HTTP 404（该页面不存在/已下架）。"
		default:
			if loc != "" {
				return fmt.Sprintf("站点返回 HTTP %d（重定向）：%s", hs.StatusCode, loc)
			}
			return fmt.Sprintf("站点返回 HTTP %d。", hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "抓取超时。建议检查网络/代理，或调大 timeout_sec 后重试。"
	}
	if errors.Is(err, context.Canceled) {
		return "运行被取消。"
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") || strings.Contains(low, "ssl") {
		return "连接失败（TLS/SSL）。建议配置 proxy.url 或稍后重试。"
	}

	return fmt.Sprintf("抓取失败：%v", err)
}

func humanizeParseError(err error) string {
	if err == nil {
		return "解析失败"
	}
	var fe *imdb.FieldError
	if errors.As(err, &fe) {
		return fmt.Sprintf("字段 %s 抽取失败（页面缺少该区域或格式变化）：%v", fe.Field, fe.Err)
	}
	// 解析失败通常意味着站点结构漂移或被返回了非预期页面（例如验证页/空内容）。
	return fmt.Sprintf("解析失败（站点结构可能变化或返回了非预期页面）：%v", err)
}

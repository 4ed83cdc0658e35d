package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/John-Robertt/boxoffice/internal/infra/httpx"
)

// Fetcher 按 URL 取回原始 HTML。
// 实现：HTTPFetcher（在线）、archive.Store（回放）、archive.Recorder（在线 + 录制）。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher 基于 resty 发起 GET。
// UA/代理/重试/超时全部由传入的 *http.Client（httpx.NewClient）决定；这里只负责状态码语义。
type HTTPFetcher struct {
	client *resty.Client
}

func NewHTTPFetcher(c *http.Client) (*HTTPFetcher, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	rc := resty.NewWithClient(c).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &HTTPFetcher{client: rc}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("url 不能为空")
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", httpx.RandomUserAgent()).
		Get(url)
	if err != nil {
		return nil, err
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &HTTPStatusError{URL: url, StatusCode: code, Location: resp.Header().Get("Location")}
	}
	return resp.Body(), nil
}

package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewClient(Options{ProxyURL: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !tr.Base.DisableKeepAlives || !tr.DisableKeepAlives {
		t.Fatalf("代理模式应禁用 keep-alive")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	if tr.Base.Proxy != nil {
		t.Fatalf("不期望启用代理，但 Proxy!=nil")
	}
	if tr.RetryMax != DefaultRetryMax {
		t.Fatalf("期望默认不重试，实际 RetryMax=%d", tr.RetryMax)
	}
	if c.Timeout != DefaultTimeout {
		t.Fatalf("期望默认超时 %s，实际 %s", DefaultTimeout, c.Timeout)
	}

	c2, err := NewClient(Options{Timeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if c2.Timeout != 3*time.Second {
		t.Fatalf("自定义超时未生效：%s", c2.Timeout)
	}
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	_, err := NewClient(Options{ProxyURL: "http://[::1"})
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestTransport_BoundedRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("请求缺少 User-Agent")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Options{RetryMax: 2})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()

	// 每次尝试都会调用一次 Proxy；让它直接失败即可统计尝试次数。
	var hits int32
	tr := &Transport{
		Base: &http.Transport{Proxy: func(*http.Request) (*url.URL, error) {
			atomic.AddInt32(&hits, 1)
			return nil, errors.New("proxy down")
		}},
		ua:       globalUA,
		RetryMax: 2,
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望失败")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("RetryMax=2 期望 3 次尝试，实际 %d", got)
	}

	// 默认不重试：只尝试一次。
	atomic.StoreInt32(&hits, 0)
	tr.RetryMax = DefaultRetryMax
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望失败")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("默认期望 1 次尝试，实际 %d", got)
	}
}

func TestRandomUserAgent_FromPool(t *testing.T) {
	ua := RandomUserAgent()
	for _, u := range globalUA.uas {
		if u == ua {
			return
		}
	}
	t.Fatalf("UA 不在池中：%q", ua)
}

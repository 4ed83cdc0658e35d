package archive

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/purell"

	"github.com/John-Robertt/boxoffice/internal/infra/fsx"
)

// Store 是抓取到的原始 HTML 的归档（<root>/pages/<sha1>.html）。
//
// 用途：
// - 录制：Recorder 把每次成功抓取的页面写进来
// - 回放：Store 本身实现 Fetch，离线重跑抽取（相同输入 => 相同记录）
//
// 约束：
// - 只按 URL 寻址，不做过期/增量判断
// - ReadOnly 时拒绝写入（回放模式）
type Store struct {
	Root     string
	ReadOnly bool
}

var (
	ErrReadOnly    = errors.New("archive: read-only")
	ErrNotArchived = errors.New("archive: page not archived")
)

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// Key 把 URL 规范化后哈希为文件名。
// 规范化只做“安全”变换（scheme/host 小写、去默认端口、去 fragment、query 排序），
// 同一页面的不同写法落到同一个 key。
func Key(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("url 不能为空")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	normalized := purell.NormalizeURL(u,
		purell.FlagsSafe|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}

// PagePath 返回 URL 对应归档文件的绝对路径。
func (s Store) PagePath(rawURL string) (string, error) {
	k, err := Key(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "pages", k+".html"), nil
}

func (s Store) Read(rawURL string) ([]byte, bool, error) {
	path, err := s.PagePath(rawURL)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) Write(rawURL string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.PagePath(rawURL)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), html)
}

// Fetch 以归档为数据源“抓取”页面（回放）。未归档 => ErrNotArchived。
func (s Store) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok, err := s.Read(rawURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArchived, rawURL)
	}
	return b, nil
}

type fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Recorder 包装一个真实 fetcher：抓取成功后把页面写入归档。
// 归档写入失败只记日志，不影响本次抓取结果。
type Recorder struct {
	Next  fetcher
	Store Store
}

func (r Recorder) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	b, err := r.Next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if werr := r.Store.Write(rawURL, b); werr != nil {
		slog.Warn("failed to archive page", "url", rawURL, "err", werr)
	} else {
		slog.Debug("archived page", "url", rawURL)
	}
	return b, nil
}

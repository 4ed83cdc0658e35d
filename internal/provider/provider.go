package provider

import (
	"github.com/John-Robertt/boxoffice/internal/domain"
)

// Provider 把“站点变化”限制在 provider 包内部；核心流程只依赖统一接口与稳定的 MovieRecord。
//
// 约束：
// - 不做抓取：网络/归档由 Fetcher 负责
// - Parse* 必须是纯函数：相同输入 => 相同输出
// - pageURL 仅用于错误追溯与相对链接解析
type Provider interface {
	Name() string
	ListingURL(ref domain.ListingPageRef) string
	ParseListing(html []byte, pageURL string) ([]domain.DetailPageRef, error)
	ParseDetail(html []byte, pageURL string) (domain.MovieRecord, error)
}

package collector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"

	"github.com/LJTian/HotDigest/internal/model"
)

// Fetcher 抽象一类数据源的抓取方式：同一个 Fetcher 可服务多个同类源
type Fetcher interface {
	Fetch(ctx context.Context, src *model.Source) ([]model.RawItem, error)
}

// FetcherFunc 让普通函数满足 Fetcher，方便测试与临时接入
type FetcherFunc func(ctx context.Context, src *model.Source) ([]model.RawItem, error)

func (f FetcherFunc) Fetch(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
	return f(ctx, src)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Headers 每次请求随机挑一个 User-Agent，并带上浏览器常见请求头
type Headers struct {
	UserAgents []string
}

func (h Headers) userAgent() string {
	if len(h.UserAgents) == 0 {
		return defaultUserAgent
	}
	return h.UserAgents[rand.IntN(len(h.UserAgents))]
}

// Apply 写入通用请求头，源自身配置的 Headers 优先
func (h Headers) Apply(req *http.Request, src *model.Source) {
	req.Header.Set("User-Agent", h.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	if src == nil {
		return
	}
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}
}

// Registry 按源 id 或抓取方式挑选 Fetcher，源 id 优先
type Registry struct {
	byID   map[string]Fetcher
	byKind map[model.FetchKind]Fetcher
	// Translator 处理配置了 translate 的源，为 nil 时不翻译
	Translator *Translator
}

// NewRegistry 注册内置的四类采集器
func NewRegistry(h Headers) *Registry {
	r := &Registry{
		byID:       make(map[string]Fetcher),
		byKind:     make(map[model.FetchKind]Fetcher),
		Translator: NewTranslator(),
	}
	r.RegisterKind(model.KindPage, &PageFetcher{Headers: h})
	r.RegisterKind(model.KindAPI, &APIFetcher{Headers: h})
	r.RegisterKind(model.KindRSS, &FeedFetcher{Headers: h})
	r.RegisterKind(model.KindHackerNews, &HackerNewsFetcher{})
	return r
}

func (r *Registry) RegisterKind(kind model.FetchKind, f Fetcher) {
	r.byKind[kind] = f
}

// RegisterSource 为某个源单独指定 Fetcher，覆盖按类型的选择
func (r *Registry) RegisterSource(id string, f Fetcher) {
	r.byID[id] = f
}

// Resolve 找到处理 src 的 Fetcher；src.Translate 为真时在外层套上标题翻译
func (r *Registry) Resolve(src *model.Source) (Fetcher, error) {
	f, ok := r.byID[src.ID]
	if !ok {
		f, ok = r.byKind[src.Kind]
	}
	if !ok {
		return nil, fmt.Errorf("collector: no fetcher for source %q (kind %q)", src.ID, src.Kind)
	}
	if src.Translate && r.Translator != nil {
		return translating{inner: f, tr: r.Translator}, nil
	}
	return f, nil
}

// capLimit 按源配置截断结果
func capLimit(items []model.RawItem, limit int) []model.RawItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

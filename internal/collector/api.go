package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LJTian/HotDigest/internal/model"
)

const (
	apiMaxResponseBytes = 4 << 20 // 4MB
	defaultAPITimeout   = 10 * time.Second
)

// APIFetcher 抓取返回 JSON 的热榜接口。ListPath 定位列表，字段差异交给 ShapeFor(src.ID)
type APIFetcher struct {
	Headers Headers
	Client  *http.Client
}

func (a *APIFetcher) client(timeout time.Duration) *http.Client {
	if a.Client != nil {
		return a.Client
	}
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	return &http.Client{Timeout: timeout}
}

func (a *APIFetcher) Fetch(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("api %s: new request: %w", src.ID, err)
	}
	a.Headers.Apply(req, src)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := a.client(src.Timeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("api %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api %s: unexpected status %d", src.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, apiMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("api %s: read body: %w", src.ID, err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("api %s: decode: %w", src.ID, err)
	}

	return ExtractItems(doc, src)
}

// ExtractItems 从已解码的 JSON 中取出候选条目，单独暴露便于测试各接口形状
func ExtractItems(doc any, src *model.Source) ([]model.RawItem, error) {
	node, ok := lookupPath(doc, src.ListPath)
	if !ok {
		return nil, fmt.Errorf("api %s: list path %q not found", src.ID, src.ListPath)
	}
	list, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("api %s: list path %q is not an array", src.ID, src.ListPath)
	}

	shape := ShapeFor(src.ID)
	out := make([]model.RawItem, 0, len(list))
	for _, elem := range list {
		title := shape.Title(elem)
		if title == "" {
			continue
		}
		item := model.RawItem{
			Text:   title,
			Rank:   len(out) + 1,
			Source: src,
		}
		if sig, ok := shape.Popularity(elem); ok {
			if src.PopularityUnit != "" && sig.Unit == model.UnitCount {
				sig.Unit = src.PopularityUnit
			}
			item.Signal = &sig
		}
		out = append(out, item)
	}
	return capLimit(out, src.Limit), nil
}

package collector

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/LJTian/HotDigest/internal/model"
)

const defaultPageTimeout = 10 * time.Second

// PageFetcher 通过 CSS 选择器抓取 HTML 热榜页面（如百度实时热搜）。
// ItemSelector 定位每一条；TitleSelector / HotSelector 在条目内取标题和热度。
// 只配了 TitleSelector 时，每个匹配元素的文本就是一条标题。
type PageFetcher struct {
	Headers Headers
}

func (p *PageFetcher) Fetch(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
	if src.URL == "" {
		return nil, fmt.Errorf("page %s: empty url", src.ID)
	}
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("page %s: parse url: %w", src.ID, err)
	}
	itemSel := src.ItemSelector
	titleSel := src.TitleSelector
	if itemSel == "" {
		itemSel, titleSel = titleSel, ""
	}
	if itemSel == "" {
		return nil, fmt.Errorf("page %s: no selector configured", src.ID)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.UserAgent(p.Headers.userAgent()),
	)
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	c.SetRequestTimeout(timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
		for k, v := range src.Headers {
			r.Headers.Set(k, v)
		}
	})

	results := make([]model.RawItem, 0, src.Limit)
	c.OnHTML(itemSel, func(e *colly.HTMLElement) {
		if src.Limit > 0 && len(results) >= src.Limit {
			return
		}
		title := pageTitle(e.DOM, titleSel)
		if title == "" {
			return
		}
		item := model.RawItem{
			Text:   title,
			Rank:   len(results) + 1,
			Source: src,
		}
		if src.HotSelector != "" {
			heatText := strings.TrimSpace(e.ChildText(src.HotSelector))
			if sig, ok := model.ParseSignal(heatText); ok {
				if src.PopularityUnit != "" && sig.Unit == model.UnitCount {
					sig.Unit = src.PopularityUnit
				}
				item.Signal = &sig
			}
		}
		results = append(results, item)
	})

	if err := c.Visit(src.URL); err != nil {
		return nil, fmt.Errorf("page %s: visit: %w", src.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		log.Printf("page %s: got 0 items, selectors may be stale", src.ID)
	}
	return results, nil
}

// pageTitle 在条目内取标题文本：优先 titleSel，否则取整个条目的文本
func pageTitle(s *goquery.Selection, titleSel string) string {
	if titleSel != "" {
		return strings.TrimSpace(s.Find(titleSel).First().Text())
	}
	return strings.TrimSpace(s.Text())
}

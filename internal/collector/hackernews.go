package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LJTian/HotDigest/internal/model"
)

const (
	hnBaseURL           = "https://hacker-news.firebaseio.com/v0"
	hnMaxItems          = 30
	hnMaxResponseBytes  = 1 << 20 // 1MB
	hnConcurrency       = 10
	hnClientTimeout     = 10 * time.Second
	hnItemClientTimeout = 5 * time.Second
)

// HackerNewsFetcher 通过官方 Firebase API 抓取 Hacker News 热门故事，score 作为热度。
// src.URL 非空时作为 API 根地址。
type HackerNewsFetcher struct{}

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Type        string `json:"type"`
}

func (h *HackerNewsFetcher) Fetch(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
	base := strings.TrimRight(src.URL, "/")
	if base == "" {
		base = hnBaseURL
	}
	limit := src.Limit
	if limit <= 0 || limit > hnMaxItems {
		limit = hnMaxItems
	}

	client := &http.Client{Timeout: hnClientTimeout}
	var ids []int
	if err := getJSON(ctx, client, base+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("hackernews: fetch top stories: %w", err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	// 每个故事写入自己的槽位，保留榜单原始顺序
	var (
		wg    sync.WaitGroup
		sem   = make(chan struct{}, hnConcurrency)
		slots = make([]*hnItem, len(ids))
	)
	itemClient := &http.Client{Timeout: hnItemClientTimeout}

	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx, id int) {
			defer wg.Done()
			defer func() { <-sem }()

			var it hnItem
			if err := getJSON(ctx, itemClient, fmt.Sprintf("%s/item/%d.json", base, id), &it); err != nil {
				log.Printf("hackernews: fetch item %d: %v", id, err)
				return
			}
			if it.Title == "" || it.Type != "story" {
				return
			}
			slots[idx] = &it
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]model.RawItem, 0, len(slots))
	for _, it := range slots {
		if it == nil {
			continue
		}
		results = append(results, model.RawItem{
			Text:   it.Title,
			Signal: &model.Signal{Value: float64(it.Score), Unit: model.UnitCount},
			Rank:   len(results) + 1,
			Source: src,
		})
	}

	if len(results) == 0 {
		log.Println("hackernews: no items fetched")
	}
	return results, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(v)
}

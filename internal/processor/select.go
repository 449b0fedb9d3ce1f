package processor

import (
	"sort"

	"github.com/LJTian/HotDigest/internal/model"
)

// Select 按热度稳定降序排序后截断到 limit，不足时按 fallback 的固定顺序补齐。
// 兜底条目只补空位，不会挤掉已有条目。
func Select(items []model.NewsItem, limit int, fallback []model.NewsItem) []model.NewsItem {
	if limit <= 0 {
		return []model.NewsItem{}
	}
	sorted := make([]model.NewsItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].HotScore > sorted[j].HotScore
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	for _, fb := range fallback {
		if len(sorted) >= limit {
			break
		}
		sorted = append(sorted, fb)
	}
	return sorted
}

// FallbackItems 把配置的兜底标题转成条目，统一标记并赋固定低分
func FallbackItems(category string, titles []string, score float64) []model.NewsItem {
	out := make([]model.NewsItem, 0, len(titles))
	for _, t := range titles {
		if t == "" {
			continue
		}
		out = append(out, model.NewsItem{
			Title:      t,
			SourceID:   "fallback",
			SourceName: "精选",
			Category:   category,
			HotScore:   score,
			Fallback:   true,
			DedupeKey:  DedupeKey(t, DefaultKeyRunes),
		})
	}
	return out
}

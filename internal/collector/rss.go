package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/LJTian/HotDigest/internal/model"
)

const defaultFeedTimeout = 15 * time.Second

// FeedFetcher 抓取 RSS / Atom 源（人民网、新华网等），只取标题，无热度
type FeedFetcher struct {
	Headers Headers
}

func (f *FeedFetcher) Fetch(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}

	parser := gofeed.NewParser()
	parser.UserAgent = f.Headers.userAgent()
	parser.Client = &http.Client{Timeout: timeout}

	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", src.ID, err)
	}

	out := make([]model.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		out = append(out, model.RawItem{
			Text:   title,
			Rank:   len(out) + 1,
			Source: src,
		})
	}
	return capLimit(out, src.Limit), nil
}

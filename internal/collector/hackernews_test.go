package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LJTian/HotDigest/internal/model"
)

func TestHackerNewsFetcherKeepsRankOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/topstories.json":
			_, _ = w.Write([]byte(`[3,1,2]`))
		case strings.HasPrefix(r.URL.Path, "/item/"):
			var id int
			_, _ = fmt.Sscanf(r.URL.Path, "/item/%d.json", &id)
			typ := "story"
			if id == 2 {
				typ = "job"
			}
			fmt.Fprintf(w, `{"id":%d,"title":"Story %d","score":%d,"type":%q}`, id, id, id*100, typ)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	items, err := (&HackerNewsFetcher{}).Fetch(context.Background(), &model.Source{ID: "hackernews", URL: srv.URL, Limit: 10})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 stories (job skipped), got %d", len(items))
	}
	if items[0].Text != "Story 3" || items[1].Text != "Story 1" {
		t.Fatalf("order not preserved: %q, %q", items[0].Text, items[1].Text)
	}
	if items[0].Signal.Count() != 300 || items[1].Rank != 2 {
		t.Fatalf("signal/rank unexpected: %+v %+v", items[0], items[1])
	}
}

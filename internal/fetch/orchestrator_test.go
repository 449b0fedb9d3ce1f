package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/HotDigest/internal/collector"
	"github.com/LJTian/HotDigest/internal/model"
	"github.com/LJTian/HotDigest/internal/retry"
)

type stubResolver map[string]collector.Fetcher

func (r stubResolver) Resolve(src *model.Source) (collector.Fetcher, error) {
	if f, ok := r[src.ID]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher for %s", src.ID)
}

func items(src *model.Source, titles ...string) []model.RawItem {
	out := make([]model.RawItem, 0, len(titles))
	for i, t := range titles {
		out = append(out, model.RawItem{Text: t, Rank: i + 1, Source: src})
	}
	return out
}

func fastPolicy(n int) retry.Policy {
	return retry.Policy{MaxAttempts: n, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRunKeepsSourceOrder(t *testing.T) {
	srcs := []*model.Source{{ID: "slow"}, {ID: "fast"}}
	r := stubResolver{
		"slow": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			time.Sleep(30 * time.Millisecond)
			return items(src, "慢源标题"), nil
		}),
		"fast": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			return items(src, "快源标题一", "快源标题二"), nil
		}),
	}

	out := New(r, Options{Retry: fastPolicy(1), MaxInFlight: 2}).Run(context.Background(), srcs)
	if len(out) != 2 {
		t.Fatalf("len(outcomes) = %d", len(out))
	}
	if out[0].Source.ID != "slow" || len(out[0].Items) != 1 {
		t.Fatalf("outcome[0] = %+v", out[0])
	}
	if out[1].Source.ID != "fast" || len(out[1].Items) != 2 || !out[1].OK() {
		t.Fatalf("outcome[1] = %+v", out[1])
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	var calls atomic.Int32
	srcs := []*model.Source{{ID: "bad", DisplayName: "坏源"}, {ID: "good"}, {ID: "unknown"}}
	r := stubResolver{
		"bad": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		}),
		"good": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			return items(src, "正常标题内容"), nil
		}),
	}

	out := New(r, Options{Retry: fastPolicy(3), MaxInFlight: 3}).Run(context.Background(), srcs)

	if out[0].OK() || out[0].Attempts != 3 || calls.Load() != 3 {
		t.Fatalf("bad outcome = %+v, calls = %d", out[0], calls.Load())
	}
	if len(out[0].Items) != 0 {
		t.Fatalf("failed source should contribute nothing")
	}
	rep := out[0].Report()
	if rep.SourceID != "bad" || rep.Name != "坏源" || rep.Err == "" || rep.OK() {
		t.Fatalf("report = %+v", rep)
	}
	if !out[1].OK() || len(out[1].Items) != 1 {
		t.Fatalf("good outcome = %+v", out[1])
	}
	if out[2].OK() || out[2].Attempts != 0 {
		t.Fatalf("unresolved outcome = %+v", out[2])
	}
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	r := stubResolver{
		"flaky": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			if calls.Add(1) < 2 {
				return nil, errors.New("503")
			}
			return items(src, "第二次成功的标题"), nil
		}),
	}
	out := New(r, Options{Retry: fastPolicy(3)}).Run(context.Background(), []*model.Source{{ID: "flaky"}})
	if !out[0].OK() || out[0].Attempts != 2 {
		t.Fatalf("outcome = %+v", out[0])
	}
}

func TestRunAbandonsUncooperativeFetcher(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	r := stubResolver{
		"stuck": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			<-block // 不理会 ctx
			return nil, nil
		}),
		"ok": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			return items(src, "按时返回的标题"), nil
		}),
	}
	srcs := []*model.Source{{ID: "stuck"}, {ID: "ok"}}

	start := time.Now()
	out := New(r, Options{Retry: fastPolicy(2), MaxInFlight: 2, RunTimeout: 100 * time.Millisecond}).
		Run(context.Background(), srcs)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Run blocked for %s", elapsed)
	}
	if out[0].OK() || !errors.Is(out[0].Err, context.DeadlineExceeded) {
		t.Fatalf("stuck outcome = %+v", out[0])
	}
	if !out[1].OK() {
		t.Fatalf("ok outcome = %+v", out[1])
	}
}

func TestRunAttemptTimeout(t *testing.T) {
	r := stubResolver{
		"slow": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	}
	src := &model.Source{ID: "slow", Timeout: 20 * time.Millisecond}
	out := New(r, Options{Retry: fastPolicy(2)}).Run(context.Background(), []*model.Source{src})
	if out[0].OK() || out[0].Attempts != 2 {
		t.Fatalf("outcome = %+v", out[0])
	}
}

func TestRunRecoversPanic(t *testing.T) {
	r := stubResolver{
		"boom": collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
			panic("nil map")
		}),
	}
	out := New(r, Options{Retry: fastPolicy(1)}).Run(context.Background(), []*model.Source{{ID: "boom"}})
	if out[0].OK() {
		t.Fatalf("panic should become a failed outcome")
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	f := collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	})

	r := stubResolver{}
	var srcs []*model.Source
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("s%d", i)
		r[id] = f
		srcs = append(srcs, &model.Source{ID: id})
	}

	New(r, Options{Retry: fastPolicy(1), MaxInFlight: 2}).Run(context.Background(), srcs)
	if peak.Load() > 2 {
		t.Fatalf("peak in-flight = %d, want <= 2", peak.Load())
	}
}

func TestRunRequestDelay(t *testing.T) {
	f := collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
		return nil, nil
	})
	r := stubResolver{"a": f, "b": f, "c": f}
	srcs := []*model.Source{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	start := time.Now()
	New(r, Options{Retry: fastPolicy(1), MaxInFlight: 3, RequestDelay: 20 * time.Millisecond}).
		Run(context.Background(), srcs)
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Fatalf("three requests finished in %s, expected spacing of 20ms", elapsed)
	}
}

func TestRunKeepsItemsWhenTranslationHangs(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	reg := collector.NewRegistry(collector.Headers{})
	reg.Translator = &collector.Translator{Client: srv.Client(), GoogleURL: srv.URL, MyMemoryURL: srv.URL}
	reg.RegisterSource("hn", collector.FetcherFunc(func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
		return items(src, "Show HN: a tiny database", "Rust 1.80 released"), nil
	}))

	src := &model.Source{ID: "hn", Kind: model.KindHackerNews, Translate: true}
	out := New(reg, Options{Retry: fastPolicy(1), AttemptTimeout: 300 * time.Millisecond}).Run(context.Background(), []*model.Source{src})
	if !out[0].OK() {
		t.Fatalf("slow translation should not fail the source: %v", out[0].Err)
	}
	if len(out[0].Items) != 2 || out[0].Items[0].Text != "Show HN: a tiny database" {
		t.Fatalf("expected original titles, got %+v", out[0].Items)
	}
}

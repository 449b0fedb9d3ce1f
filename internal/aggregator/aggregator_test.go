package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/HotDigest/internal/collector"
	"github.com/LJTian/HotDigest/internal/config"
	"github.com/LJTian/HotDigest/internal/model"
)

type sourceSpec struct {
	id     string
	weight float64
	fetch  collector.FetcherFunc
}

func setup(t *testing.T, specs ...sourceSpec) (*Aggregator, []*model.Source, *config.Pipeline) {
	t.Helper()

	p := config.Default()
	p.Settings.RequestDelay = 0
	p.Settings.MaxRetries = 2
	p.Settings.BackoffBase = time.Millisecond
	p.Settings.BackoffMax = 2 * time.Millisecond
	p.Settings.RunTimeout = 5 * time.Second
	p.Scoring.Jitter = 0
	p.Scoring.Seed = 7

	reg := collector.NewRegistry(collector.Headers{})
	p.Sources = nil
	for i, s := range specs {
		p.Sources = append(p.Sources, config.SourceConfig{
			ID:       s.id,
			Name:     s.id,
			Weight:   s.weight,
			Kind:     model.KindAPI,
			URL:      "http://example.invalid/" + s.id,
			Priority: i,
		})
		reg.RegisterSource(s.id, s.fetch)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return New(p, reg), p.EnabledSources(), p
}

func returning(texts ...string) collector.FetcherFunc {
	return func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
		out := make([]model.RawItem, 0, len(texts))
		for i, t := range texts {
			out = append(out, model.RawItem{Text: t, Rank: i + 1, Source: src})
		}
		return out, nil
	}
}

func failing(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func checkShape(t *testing.T, res *model.Result, p *config.Pipeline) {
	t.Helper()
	want := p.CategoryNames()
	got := res.Categories()
	if len(got) != len(want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("categories = %v, want %v", got, want)
		}
	}
	for _, b := range res.Buckets {
		c, _ := p.Category(b.Category)
		if len(b.Items) > p.LimitFor(c) {
			t.Fatalf("%s has %d items, limit %d", b.Category, len(b.Items), p.LimitFor(c))
		}
		for i := 1; i < len(b.Items); i++ {
			if b.Items[i].HotScore > b.Items[i-1].HotScore {
				t.Fatalf("%s not descending at %d: %v > %v", b.Category, i, b.Items[i].HotScore, b.Items[i-1].HotScore)
			}
		}
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	a, srcs, p := setup(t,
		sourceSpec{id: "s1", fetch: failing},
		sourceSpec{id: "s2", fetch: failing},
		sourceSpec{id: "s3", fetch: failing},
		sourceSpec{id: "s4", fetch: failing},
		sourceSpec{id: "s5", fetch: failing},
	)

	res := a.Run(context.Background(), srcs)
	checkShape(t, res, p)

	if len(res.Buckets) != 5 {
		t.Fatalf("buckets = %d, want 5", len(res.Buckets))
	}
	for _, b := range res.Buckets {
		if len(b.Items) != 5 {
			t.Fatalf("%s has %d items, want 5 fallback items", b.Category, len(b.Items))
		}
		for _, it := range b.Items {
			if !it.Fallback {
				t.Fatalf("%s has organic item %+v", b.Category, it)
			}
		}
	}
	if !res.Starved() || len(res.Sources) != 5 {
		t.Fatalf("Starved = %v, reports = %d", res.Starved(), len(res.Sources))
	}
	for _, r := range res.Sources {
		if r.OK() || r.Attempts != 2 {
			t.Fatalf("report = %+v", r)
		}
	}
	if res.RunID == "" || res.FinishedAt.Before(res.StartedAt) {
		t.Fatalf("run metadata = %+v", res)
	}
}

func TestRunWithNoSources(t *testing.T) {
	a, _, p := setup(t)
	res := a.Run(context.Background(), nil)
	checkShape(t, res, p)
	if !res.Starved() {
		t.Fatalf("expected starved result")
	}
}

func TestRunScoresAndClassifies(t *testing.T) {
	a, srcs, p := setup(t,
		sourceSpec{id: "a", weight: 1.2, fetch: returning("1. 国务院常务会议部署重点工作 🔥12w", "2. 明星演唱会门票秒空")},
		sourceSpec{id: "down", fetch: failing},
	)

	res := a.Run(context.Background(), srcs)
	checkShape(t, res, p)

	gov, _ := res.Bucket("时政")
	if gov.Organic() != 1 {
		t.Fatalf("时政 organic = %d, items = %+v", gov.Organic(), gov.Items)
	}
	top := gov.Items[0]
	if top.Title != "国务院常务会议部署重点工作" || top.Fallback {
		t.Fatalf("top 时政 item = %+v", top)
	}
	if top.RawPopularity != 120000 || top.SourceWeight != 1.2 {
		t.Fatalf("top item signal/weight = %+v", top)
	}
	// 真实条目分数高于兜底条目，排在前面
	if len(gov.Items) != 5 || !gov.Items[1].Fallback {
		t.Fatalf("时政 bucket = %+v", gov.Items)
	}

	hot, _ := res.Bucket("热点")
	if hot.Items[0].Title != "明星演唱会门票秒空" {
		t.Fatalf("热点 top = %+v", hot.Items[0])
	}
	if res.Starved() {
		t.Fatalf("result should not be starved")
	}
}

func TestRunDedupesAcrossSources(t *testing.T) {
	a, srcs, p := setup(t,
		sourceSpec{id: "low", fetch: returning("重大政策发布 🔥3w")},
		sourceSpec{id: "high", fetch: returning("重大政策发布 🔥50w")},
	)

	res := a.Run(context.Background(), srcs)
	checkShape(t, res, p)

	var found []model.NewsItem
	for _, b := range res.Buckets {
		for _, it := range b.Items {
			if it.Title == "重大政策发布" {
				found = append(found, it)
			}
		}
	}
	if len(found) != 1 {
		t.Fatalf("found %d copies of the story: %+v", len(found), found)
	}
	if found[0].SourceID != "high" || found[0].RawPopularity != 500000 {
		t.Fatalf("kept %+v, want the higher scored copy", found[0])
	}
}

func TestRunFirstConfiguredCategoryWins(t *testing.T) {
	a, srcs, _ := setup(t, sourceSpec{id: "a", fetch: returning("国务院发布芯片产业支持新规")})

	for i := 0; i < 5; i++ {
		res := a.Run(context.Background(), srcs)
		gov, _ := res.Bucket("时政")
		tech, _ := res.Bucket("科技")
		if gov.Organic() != 1 || tech.Organic() != 0 {
			t.Fatalf("run %d: 时政 organic=%d 科技 organic=%d", i, gov.Organic(), tech.Organic())
		}
	}
}

func TestRunTruncatesToLimit(t *testing.T) {
	a, srcs, p := setup(t, sourceSpec{id: "a", fetch: returning(
		"新能源汽车销量创下新高",
		"国产芯片实现重大突破",
		"人工智能大模型开放测试",
		"航天员完成出舱活动任务",
		"机器人产业规模持续扩大",
		"5G 基站数量再创新高",
		"卫星互联网建设提速推进",
	)})

	res := a.Run(context.Background(), srcs)
	checkShape(t, res, p)
	tech, _ := res.Bucket("科技")
	if len(tech.Items) != 5 || tech.Organic() != 5 {
		t.Fatalf("科技 bucket = %+v", tech.Items)
	}
}

func TestMaxRetriesCountsTotalAttempts(t *testing.T) {
	var calls atomic.Int32
	a, srcs, _ := setup(t, sourceSpec{id: "flaky", fetch: func(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
		calls.Add(1)
		return nil, errors.New("status 502")
	}})

	res := a.Run(context.Background(), srcs)
	if calls.Load() != 2 {
		t.Fatalf("max_retries=2 should mean 2 calls in total, got %d", calls.Load())
	}
	if len(res.Sources) != 1 || res.Sources[0].Attempts != 2 || res.Sources[0].OK() {
		t.Fatalf("source report = %+v", res.Sources)
	}
}

// Package aggregator 驱动一轮完整的聚合：抓取、清洗分类打分、分类内去重、排序截断与兜底补齐。
package aggregator

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/LJTian/HotDigest/internal/config"
	"github.com/LJTian/HotDigest/internal/fetch"
	"github.com/LJTian/HotDigest/internal/model"
	"github.com/LJTian/HotDigest/internal/processor"
	"github.com/LJTian/HotDigest/internal/retry"
)

type Aggregator struct {
	cfg          *config.Pipeline
	orchestrator *fetch.Orchestrator
	normalizer   *processor.Normalizer
	classifier   *processor.Classifier
	fallback     map[string][]model.NewsItem
}

// New cfg 应已通过 Validate
func New(cfg *config.Pipeline, r fetch.Resolver) *Aggregator {
	s := cfg.Settings
	orch := fetch.New(r, fetch.Options{
		Retry: retry.Policy{
			MaxAttempts: s.MaxRetries,
			BaseDelay:   s.BackoffBase,
			MaxDelay:    s.BackoffMax,
			Multiplier:  2,
		},
		MaxInFlight:    s.MaxInFlight,
		RequestDelay:   s.RequestDelay,
		RunTimeout:     s.RunTimeout,
		AttemptTimeout: s.Timeout,
	})

	fallback := make(map[string][]model.NewsItem, len(cfg.Categories))
	for _, c := range cfg.Categories {
		fallback[c.Name] = processor.FallbackItems(c.Name, c.Fallback, s.FallbackScore)
	}

	return &Aggregator{
		cfg:          cfg,
		orchestrator: orch,
		normalizer:   processor.NewNormalizer(cfg.Normalize),
		classifier:   processor.NewClassifier(cfg.ClassifierCategories(), s.DefaultCategory),
		fallback:     fallback,
	}
}

// Run 执行一轮聚合。任何源失败都不会返回错误，结果的分类集合总是与配置一致。
func (a *Aggregator) Run(ctx context.Context, sources []*model.Source) *model.Result {
	res := &model.Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log.Printf("aggregator: run %s start, sources=%d", res.RunID, len(sources))

	outcomes := a.orchestrator.Run(ctx, sources)

	// 打分器持有随机源，每轮单独创建
	proc := processor.New(a.normalizer, a.classifier, processor.NewScorer(a.cfg.Scoring), a.cfg.Settings.DedupeKeyRunes)

	byCategory := make(map[string][]model.NewsItem, len(a.cfg.Categories))
	res.Sources = make([]model.SourceReport, 0, len(outcomes))
	for _, o := range outcomes {
		res.Sources = append(res.Sources, o.Report())
		if !o.OK() {
			continue
		}
		for _, it := range proc.Process(o.Items) {
			byCategory[it.Category] = append(byCategory[it.Category], it)
		}
	}

	res.Buckets = make([]model.Bucket, 0, len(a.cfg.Categories))
	for _, c := range a.cfg.Categories {
		deduped := processor.Dedupe(byCategory[c.Name])
		items := processor.Select(deduped, a.cfg.LimitFor(c), a.fallback[c.Name])
		res.Buckets = append(res.Buckets, model.Bucket{Category: c.Name, Items: items})
	}
	res.FinishedAt = time.Now()

	if res.Starved() {
		log.Printf("error: aggregator: run %s: no source produced items (%d configured), digest is fallback only",
			res.RunID, len(sources))
	}
	for _, b := range res.Buckets {
		log.Printf("aggregator: run %s %s: %d items (%d organic)", res.RunID, b.Category, len(b.Items), b.Organic())
	}
	log.Printf("aggregator: run %s done in %s", res.RunID, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return res
}

// RunAll 使用配置中全部启用的源执行一轮
func (a *Aggregator) RunAll(ctx context.Context) *model.Result {
	return a.Run(ctx, a.cfg.EnabledSources())
}

// Package fetch 并发调度各数据源的抓取：限流、单次超时、有界重试，单个源失败不影响其它源。
package fetch

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/LJTian/HotDigest/internal/collector"
	"github.com/LJTian/HotDigest/internal/model"
	"github.com/LJTian/HotDigest/internal/retry"
)

// Resolver 为数据源挑选采集器，collector.Registry 满足该接口
type Resolver interface {
	Resolve(src *model.Source) (collector.Fetcher, error)
}

// Options 调度参数
type Options struct {
	Retry retry.Policy
	// MaxInFlight 同时进行的抓取数，<=0 时为 1
	MaxInFlight int
	// RequestDelay 相邻两次请求的最小间隔，0 表示不限
	RequestDelay time.Duration
	// RunTimeout 整轮截止时间，到点后未完成的抓取按失败处理
	RunTimeout time.Duration
	// AttemptTimeout 源没有配置超时时单次尝试的超时
	AttemptTimeout time.Duration
}

// Outcome 单个源的抓取结果：Err 为 nil 表示成功，Items 可能为空
type Outcome struct {
	Source   *model.Source
	Items    []model.RawItem
	Err      error
	Attempts int
	Elapsed  time.Duration
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report 转成对外展示的采集报告
func (o Outcome) Report() model.SourceReport {
	r := model.SourceReport{
		Items:    len(o.Items),
		Attempts: o.Attempts,
		Elapsed:  o.Elapsed,
	}
	if o.Source != nil {
		r.SourceID = o.Source.ID
		r.Name = o.Source.DisplayName
	}
	if o.Err != nil {
		r.Err = o.Err.Error()
	}
	return r
}

type Orchestrator struct {
	resolver Resolver
	opts     Options
}

func New(r Resolver, opts Options) *Orchestrator {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 1
	}
	return &Orchestrator{resolver: r, opts: opts}
}

// Run 抓取全部源，返回与 sources 一一对应的结果。
// 每个 goroutine 只写自己的下标，全部结束（或被放弃）后才返回。
func (o *Orchestrator) Run(ctx context.Context, sources []*model.Source) []Outcome {
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	limit := rate.Inf
	if o.opts.RequestDelay > 0 {
		limit = rate.Every(o.opts.RequestDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	outcomes := make([]Outcome, len(sources))
	var g errgroup.Group
	g.SetLimit(o.opts.MaxInFlight)

	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = o.fetchSource(ctx, limiter, src)
			return nil // 单个源失败不影响整组
		})
	}
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) fetchSource(ctx context.Context, limiter *rate.Limiter, src *model.Source) Outcome {
	start := time.Now()
	out := Outcome{Source: src}

	f, err := o.resolver.Resolve(src)
	if err != nil {
		out.Err = err
		log.Printf("warn: fetch: %s: %v", src.ID, err)
		out.Elapsed = time.Since(start)
		return out
	}

	attempts, err := o.opts.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for request slot: %w", err)
		}
		items, err := o.attempt(ctx, f, src)
		if err != nil {
			log.Printf("warn: fetch: %s attempt %d: %v", src.ID, attempt, err)
			return err
		}
		out.Items = items
		return nil
	})
	out.Attempts = attempts
	out.Err = err
	out.Elapsed = time.Since(start)

	if err != nil {
		log.Printf("fetch %s error: %v", src.ID, err)
	} else {
		log.Printf("fetch %s done, items=%d attempts=%d elapsed=%s", src.ID, len(out.Items), attempts, out.Elapsed.Round(time.Millisecond))
	}
	return out
}

type attemptResult struct {
	items []model.RawItem
	err   error
}

// attempt 单次抓取。采集器不响应 ctx 时也会在超时后放弃等待，
// 遗留的 goroutine 写入带缓冲的 channel 后自行退出。
func (o *Orchestrator) attempt(ctx context.Context, f collector.Fetcher, src *model.Source) ([]model.RawItem, error) {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = o.opts.AttemptTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ch := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- attemptResult{err: fmt.Errorf("fetcher panic: %v", r)}
			}
		}()
		items, err := f.Fetch(ctx, src)
		ch <- attemptResult{items: items, err: err}
	}()

	select {
	case r := <-ch:
		return r.items, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("abandoned: %w", ctx.Err())
	}
}

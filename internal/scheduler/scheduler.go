package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/HotDigest/internal/model"
)

// Runner 执行一轮聚合，aggregator.Aggregator 满足该接口
type Runner interface {
	Run(ctx context.Context, sources []*model.Source) *model.Result
}

// Sink 接收每一轮的聚合结果，例如写缓存、打印文本摘要
type Sink interface {
	Publish(ctx context.Context, res *model.Result) error
}

// SinkFunc 让普通函数满足 Sink
type SinkFunc func(ctx context.Context, res *model.Result) error

func (f SinkFunc) Publish(ctx context.Context, res *model.Result) error {
	return f(ctx, res)
}

// DisabledFunc 返回本轮需要跳过的源 id
type DisabledFunc func() (map[string]bool, error)

type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	sources  []*model.Source
	disabled DisabledFunc
	sinks    []Sink
	// JobTimeout 单轮任务的上限，聚合器自身还有更短的运行截止时间
	JobTimeout time.Duration

	running atomic.Bool
}

func New(spec string, runner Runner, sources []*model.Source, disabled DisabledFunc, sinks ...Sink) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:       c,
		runner:     runner,
		sources:    sources,
		disabled:   disabled,
		sinks:      sinks,
		JobTimeout: 10 * time.Minute,
	}

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start 启动定时任务；startupDelay > 0 时延迟执行首轮，让缓存尽快有数据
func (s *Scheduler) Start(startupDelay time.Duration) {
	s.cron.Start()
	if startupDelay > 0 {
		time.AfterFunc(startupDelay, func() {
			s.Trigger()
		})
	}
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Trigger 在后台执行一轮；已有任务在跑时返回 false。返回 true 时该轮一定会执行
func (s *Scheduler) Trigger() bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.running.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
		defer cancel()
		s.run(ctx)
	}()
	return true
}

// Running 当前是否有任务在执行
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发；与进行中的任务重叠时直接跳过并返回 nil
func (s *Scheduler) RunOnce(ctx context.Context) *model.Result {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("digest job already running, skip")
		return nil
	}
	defer s.running.Store(false)
	return s.run(ctx)
}

// run 调用方需已持有 running 标记
func (s *Scheduler) run(ctx context.Context) *model.Result {
	log.Println("start digest job...")
	sources := s.activeSources()
	res := s.runner.Run(ctx, sources)

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, res); err != nil {
			log.Printf("publish digest %s error: %v", res.RunID, err)
		}
	}
	log.Printf("digest job done, run=%s sources=%d", res.RunID, len(sources))
	return res
}

func (s *Scheduler) activeSources() []*model.Source {
	if s.disabled == nil {
		return s.sources
	}
	disabled, err := s.disabled()
	if err != nil {
		log.Printf("warn: load disabled channels: %v", err)
		return s.sources
	}
	out := make([]*model.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if disabled[src.ID] {
			log.Printf("skip disabled source %s", src.ID)
			continue
		}
		out = append(out, src)
	}
	return out
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/LJTian/HotDigest/internal/aggregator"
	"github.com/LJTian/HotDigest/internal/collector"
	"github.com/LJTian/HotDigest/internal/config"
	"github.com/LJTian/HotDigest/internal/digest"
	"github.com/LJTian/HotDigest/internal/scheduler"
	"github.com/LJTian/HotDigest/internal/storage"
)

// 一个仅执行一轮聚合的命令行入口：把文本摘要打印到标准输出，
// 配置了 POSTGRES_DSN 时同时记录渠道健康并缓存摘要
func main() {
	cfg := config.Load()

	pipeline, err := config.LoadPipeline(cfg.NewsConfig)
	if err != nil {
		log.Fatalf("load pipeline config failed: %v", err)
	}
	sources := pipeline.EnabledSources()

	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	sinks := []scheduler.Sink{
		digest.Writer{W: os.Stdout, Opts: digest.Options{Icons: pipeline.Icons(), Location: loc, ShowSources: true}},
	}

	var disabled scheduler.DisabledFunc
	if cfg.PostgresDSN != "" {
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		// 确保各个渠道存在
		for _, src := range sources {
			if _, err := store.EnsureChannel(src); err != nil {
				log.Fatalf("ensure channel %s failed: %v", src.ID, err)
			}
		}
		disabled = store.DisabledChannels
		sinks = append(sinks, store)
	}

	reg := collector.NewRegistry(collector.Headers{UserAgents: pipeline.UserAgents})
	agg := aggregator.New(pipeline, reg)

	s, err := scheduler.New(cfg.CronSpec, agg, sources, disabled, sinks...)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	// 只执行一轮后退出
	ctx, cancel := context.WithTimeout(context.Background(), pipeline.Settings.RunTimeout+time.Minute)
	defer cancel()
	s.RunOnce(ctx)
}

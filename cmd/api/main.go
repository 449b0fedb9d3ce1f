package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/HotDigest/internal/aggregator"
	"github.com/LJTian/HotDigest/internal/api"
	"github.com/LJTian/HotDigest/internal/collector"
	"github.com/LJTian/HotDigest/internal/config"
	"github.com/LJTian/HotDigest/internal/digest"
	"github.com/LJTian/HotDigest/internal/scheduler"
	"github.com/LJTian/HotDigest/internal/storage"
)

func main() {
	cfg := config.Load()

	pipeline, err := config.LoadPipeline(cfg.NewsConfig)
	if err != nil {
		log.Fatalf("load pipeline config failed: %v", err)
	}

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	// 确保各个渠道存在
	sources := pipeline.EnabledSources()
	for _, src := range sources {
		if _, err := store.EnsureChannel(src); err != nil {
			log.Fatalf("ensure channel %s failed: %v", src.ID, err)
		}
	}

	reg := collector.NewRegistry(collector.Headers{UserAgents: pipeline.UserAgents})
	agg := aggregator.New(pipeline, reg)

	s, err := scheduler.New(cfg.CronSpec, agg, sources, store.DisabledChannels, store)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	// 启动 15 秒后先跑一轮
	s.Start(15 * time.Second)

	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(store, store, s, textOptions(pipeline))
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

func textOptions(p *config.Pipeline) digest.Options {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return digest.Options{Icons: p.Icons(), Location: loc, ShowSources: true}
}

package config

import (
	"log"
	"os"
)

// Config 进程级配置，全部来自环境变量
type Config struct {
	AppPort string

	// PostgresDSN 为空时不启用渠道登记与健康记录
	PostgresDSN string
	RedisAddr   string

	CronSpec string
	// NewsConfig 流水线 YAML 配置路径，文件不存在时使用内置默认值
	NewsConfig string

	// 可选的全站 Basic Auth
	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "9000"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:      getEnv("CRON_SPEC", "CRON_TZ=Asia/Shanghai 0 8 * * *"),
		NewsConfig:    getEnv("NEWS_CONFIG", "config.yaml"),
		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),
	}

	log.Printf("config loaded: port=%s cron=%q news_config=%s", cfg.AppPort, cfg.CronSpec, cfg.NewsConfig)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

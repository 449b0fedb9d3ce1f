package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LJTian/HotDigest/internal/model"
)

// ErrNoDigest 还没有任何一轮聚合结果
var ErrNoDigest = errors.New("no digest available")

const (
	latestDigestKey = "digest:latest"
	// digestTTL 每日一轮，留足一天以上以便调度延误时仍可读取
	digestTTL = 48 * time.Hour
)

// DigestCache 只保存最近一轮的摘要 JSON，Redis 不可用时兜底
type DigestCache struct {
	Slot      string    `gorm:"primaryKey;size:32" json:"slot"`
	RunID     string    `gorm:"size:40" json:"runId"`
	Data      string    `gorm:"type:text" json:"data"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`
}

// SaveDigest 写入最新摘要：Redis 与 DB 都配置时两边都写
func (s *Store) SaveDigest(ctx context.Context, res *model.Result) error {
	bs, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	var errs []error
	if s.Redis != nil {
		if err := s.Redis.Set(ctx, latestDigestKey, bs, digestTTL).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis set: %w", err))
		}
	}
	if s.DB != nil {
		row := DigestCache{Slot: "latest", RunID: res.RunID, Data: string(bs), UpdatedAt: time.Now()}
		if err := s.DB.WithContext(ctx).Save(&row).Error; err != nil {
			errs = append(errs, fmt.Errorf("db save: %w", err))
		}
	}
	return errors.Join(errs...)
}

// LatestDigest 先读 Redis，未命中再读 DB
func (s *Store) LatestDigest(ctx context.Context) (*model.Result, error) {
	if s.Redis != nil {
		bs, err := s.Redis.Get(ctx, latestDigestKey).Bytes()
		if err == nil {
			return decodeDigest(bs)
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("warn: redis get %s: %v", latestDigestKey, err)
		}
	}

	if s.DB != nil {
		var row DigestCache
		silent := s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
		err := silent.WithContext(ctx).Where("slot = ?", "latest").First(&row).Error
		if err == nil {
			return decodeDigest([]byte(row.Data))
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNoDigest
}

func decodeDigest(bs []byte) (*model.Result, error) {
	var res model.Result
	if err := json.Unmarshal(bs, &res); err != nil {
		return nil, fmt.Errorf("decode digest: %w", err)
	}
	return &res, nil
}

// Publish 记录各渠道健康状况并缓存摘要，供调度器作为结果出口使用
func (s *Store) Publish(ctx context.Context, res *model.Result) error {
	var errs []error
	if err := s.RecordRun(res); err != nil {
		errs = append(errs, err)
	}
	if err := s.SaveDigest(ctx, res); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LJTian/HotDigest/internal/model"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// ErrUnknownChannel 渠道不存在
var ErrUnknownChannel = errors.New("unknown channel")

// Channel 描述一个数据源及其最近一次采集的健康状况，例如 weibo / zhihu / hackernews
type Channel struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:64;uniqueIndex" json:"code"` // 与配置中的源 id 一致
	Name    string `gorm:"size:128" json:"name"`
	Kind    string `gorm:"size:32" json:"kind"`
	BaseURL string `gorm:"size:512" json:"baseUrl"`
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	LastRunID           string     `gorm:"size:40" json:"lastRunId"`
	LastFetchAt         *time.Time `json:"lastFetchAt"`
	LastItems           int        `json:"lastItems"`
	LastAttempts        int        `json:"lastAttempts"`
	LastElapsedMs       int64      `json:"lastElapsedMs"`
	LastError           string     `gorm:"size:512" json:"lastError"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	// Meta 源的分类提示、权重等配置快照
	Meta datatypes.JSONMap `gorm:"type:jsonb" json:"meta"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store DB 与 Redis 都是可选的：DB 为 nil 时不做渠道登记，Redis 为 nil 时摘要只存 DB
type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	s := &Store{}

	if dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.AutoMigrate(&Channel{}, &DigestCache{}); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s.DB = db
	}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
		s.Redis = rdb
	}

	return s, nil
}

// EnsureChannel 确保某个源对应的渠道存在，已存在时刷新名称与配置快照，不改动状态
func (s *Store) EnsureChannel(src *model.Source) (*Channel, error) {
	if s.DB == nil {
		return nil, nil
	}
	meta := datatypes.JSONMap{
		"category": src.CategoryHint,
		"weight":   src.Weight,
		"priority": src.Priority,
		"limit":    src.Limit,
	}

	ch := &Channel{}
	if err := s.DB.Where("code = ?", src.ID).First(ch).Error; err == nil {
		err = s.DB.Model(ch).Updates(map[string]any{
			"name":     toValidUTF8(src.DisplayName),
			"kind":     string(src.Kind),
			"base_url": truncateRunesDB(src.URL, 512),
			"meta":     meta,
		}).Error
		return ch, err
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ch = &Channel{
		Code:    src.ID,
		Name:    toValidUTF8(src.DisplayName),
		Kind:    string(src.Kind),
		BaseURL: truncateRunesDB(src.URL, 512),
		Status:  StatusActive,
		Meta:    meta,
	}
	if err := s.DB.Create(ch).Error; err != nil {
		return nil, err
	}
	return ch, nil
}

// ListChannels 按 code 排序返回全部渠道
func (s *Store) ListChannels() ([]Channel, error) {
	if s.DB == nil {
		return nil, nil
	}
	var list []Channel
	err := s.DB.Order("code ASC").Find(&list).Error
	return list, err
}

// SetChannelStatus 启用或停用渠道，停用的渠道在下一轮采集时跳过
func (s *Store) SetChannelStatus(code, status string) error {
	if status != StatusActive && status != StatusDisabled {
		return fmt.Errorf("invalid status %q", status)
	}
	if s.DB == nil {
		return ErrUnknownChannel
	}
	res := s.DB.Model(&Channel{}).Where("code = ?", code).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUnknownChannel
	}
	return nil
}

// DisabledChannels 返回被停用的渠道 code 集合
func (s *Store) DisabledChannels() (map[string]bool, error) {
	out := make(map[string]bool)
	if s.DB == nil {
		return out, nil
	}
	var codes []string
	if err := s.DB.Model(&Channel{}).Where("status = ?", StatusDisabled).Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	for _, c := range codes {
		out[c] = true
	}
	return out, nil
}

// RecordRun 把一轮采集的各源报告写回渠道健康字段
func (s *Store) RecordRun(res *model.Result) error {
	if s.DB == nil || res == nil {
		return nil
	}
	for _, r := range res.Sources {
		ch := &Channel{}
		if err := s.DB.Where("code = ?", r.SourceID).First(ch).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		applyReport(ch, r, res.RunID, res.FinishedAt)
		if err := s.DB.Model(ch).Updates(map[string]any{
			"last_run_id":          ch.LastRunID,
			"last_fetch_at":        ch.LastFetchAt,
			"last_items":           ch.LastItems,
			"last_attempts":        ch.LastAttempts,
			"last_elapsed_ms":      ch.LastElapsedMs,
			"last_error":           ch.LastError,
			"consecutive_failures": ch.ConsecutiveFailures,
		}).Error; err != nil {
			return fmt.Errorf("record channel %s: %w", r.SourceID, err)
		}
	}
	return nil
}

// applyReport 失败时累加连续失败次数，成功则清零
func applyReport(ch *Channel, r model.SourceReport, runID string, at time.Time) {
	t := at
	ch.LastRunID = runID
	ch.LastFetchAt = &t
	ch.LastItems = r.Items
	ch.LastAttempts = r.Attempts
	ch.LastElapsedMs = r.Elapsed.Milliseconds()
	if r.OK() {
		ch.LastError = ""
		ch.ConsecutiveFailures = 0
		return
	}
	// 再次做长度保护，确保不会超过 varchar(512) 的限制
	ch.LastError = truncateRunesDB(toValidUTF8(r.Err), 512)
	ch.ConsecutiveFailures++
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误（如百度等源可能含 GBK/混编）
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度。
// 外部服务返回的错误信息可能很长，入库前统一截断。
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

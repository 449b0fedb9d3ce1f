package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LJTian/HotDigest/internal/model"
	"github.com/LJTian/HotDigest/internal/processor"
)

// ErrInvalidConfig 流水线配置不合法
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Settings 运行参数
type Settings struct {
	PerCategoryLimit int    `yaml:"per_category_limit"`
	DefaultCategory  string `yaml:"default_category"`

	// RequestDelay 相邻两次发起抓取之间的最小间隔
	RequestDelay time.Duration `yaml:"request_delay"`
	// MaxRetries 每个源的总尝试次数（含第一次），1 表示不重试
	MaxRetries   int           `yaml:"max_retries"`
	BackoffBase  time.Duration `yaml:"backoff_base"`
	BackoffMax   time.Duration `yaml:"backoff_max"`
	// Timeout 单次抓取尝试的默认超时，源可单独覆盖
	Timeout     time.Duration `yaml:"timeout"`
	MaxInFlight int           `yaml:"max_in_flight"`
	// RunTimeout 整轮聚合的截止时间
	RunTimeout time.Duration `yaml:"run_timeout"`

	FallbackScore  float64 `yaml:"fallback_score"`
	DedupeKeyRunes int     `yaml:"dedupe_key_runes"`
}

// SourceConfig 单个新闻源
type SourceConfig struct {
	ID       string          `yaml:"id"`
	Name     string          `yaml:"name"`
	Enabled  *bool           `yaml:"enabled"`
	Category string          `yaml:"category"`
	Weight   float64         `yaml:"weight"`
	Kind     model.FetchKind `yaml:"kind"`
	URL      string          `yaml:"url"`
	Limit    int             `yaml:"limit"`
	Timeout  time.Duration   `yaml:"timeout"`
	// Priority 越小越先抓
	Priority int `yaml:"priority"`

	ItemSelector  string            `yaml:"item_selector"`
	TitleSelector string            `yaml:"selector"`
	HotSelector   string            `yaml:"hot_selector"`
	ListPath      string            `yaml:"list_path"`
	Unit          model.Unit        `yaml:"unit"`
	Headers       map[string]string `yaml:"headers"`
	Translate     bool              `yaml:"translate"`
}

// IsEnabled 未显式配置时默认启用
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// CategoryConfig 分类：关键词、条数上限与兜底标题
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Icon     string   `yaml:"icon"`
	Keywords []string `yaml:"keywords"`
	// Limit 为 0 时使用 settings.per_category_limit
	Limit    int      `yaml:"limit"`
	Fallback []string `yaml:"fallback"`
}

// Pipeline 一次聚合所需的全部配置，进程启动时构造一次后显式传递
type Pipeline struct {
	Settings   Settings                  `yaml:"settings"`
	Sources    []SourceConfig            `yaml:"sources"`
	Categories []CategoryConfig          `yaml:"categories"`
	Normalize  processor.NormalizeConfig `yaml:"normalize"`
	Scoring    processor.ScoreConfig     `yaml:"scoring"`
	UserAgents []string                  `yaml:"user_agents"`
}

// LoadPipeline 读取 YAML 配置；文件不存在时使用内置默认值。
// 未填写的字段用默认值补齐，最后做一次校验。
func LoadPipeline(path string) (*Pipeline, error) {
	if path == "" {
		return Default(), nil
	}
	bs, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("warn: pipeline config %s not found, using built-in defaults", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	return ParsePipeline(bs)
}

// ParsePipeline 解析 YAML 内容并补齐默认值
func ParsePipeline(bs []byte) (*Pipeline, error) {
	p := &Pipeline{}
	if err := yaml.Unmarshal(bs, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	p.applyDefaults(Default())
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) applyDefaults(def *Pipeline) {
	s, d := &p.Settings, def.Settings
	if s.PerCategoryLimit == 0 {
		s.PerCategoryLimit = d.PerCategoryLimit
	}
	if s.DefaultCategory == "" {
		s.DefaultCategory = d.DefaultCategory
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = d.MaxRetries
	}
	if s.BackoffBase == 0 {
		s.BackoffBase = d.BackoffBase
	}
	if s.BackoffMax == 0 {
		s.BackoffMax = d.BackoffMax
	}
	if s.Timeout == 0 {
		s.Timeout = d.Timeout
	}
	if s.MaxInFlight == 0 {
		s.MaxInFlight = d.MaxInFlight
	}
	if s.RunTimeout == 0 {
		s.RunTimeout = d.RunTimeout
	}
	if s.DedupeKeyRunes == 0 {
		s.DedupeKeyRunes = d.DedupeKeyRunes
	}

	if len(p.Sources) == 0 {
		p.Sources = def.Sources
	}
	if len(p.Categories) == 0 {
		p.Categories = def.Categories
	}
	if len(p.UserAgents) == 0 {
		p.UserAgents = def.UserAgents
	}

	n := &p.Normalize
	if n.MinRunes == 0 {
		n.MinRunes = def.Normalize.MinRunes
	}
	if n.Exclusions == nil {
		n.Exclusions = def.Normalize.Exclusions
	}
	if n.Prefixes == nil {
		n.Prefixes = def.Normalize.Prefixes
	}
	if n.AdMarkers == nil {
		n.AdMarkers = def.Normalize.AdMarkers
	}
	if n.FailureMarkers == nil {
		n.FailureMarkers = def.Normalize.FailureMarkers
	}

	// 评分参数整体未配置时沿用默认
	if p.Scoring.BaseHot == 0 && len(p.Scoring.Keywords) == 0 {
		seed := p.Scoring.Seed
		p.Scoring = def.Scoring
		p.Scoring.Seed = seed
	}
}

// Validate 检查分类集合与数值参数
func (p *Pipeline) Validate() error {
	if len(p.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidConfig)
	}
	if p.Settings.PerCategoryLimit <= 0 {
		return fmt.Errorf("%w: per_category_limit must be positive", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(p.Categories))
	hasDefault := false
	for _, c := range p.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: category without name", ErrInvalidConfig)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidConfig, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Name == p.Settings.DefaultCategory {
			hasDefault = true
		}
		if c.Limit < 0 {
			return fmt.Errorf("%w: category %q has negative limit", ErrInvalidConfig, c.Name)
		}
	}
	if !hasDefault {
		return fmt.Errorf("%w: default category %q is not configured", ErrInvalidConfig, p.Settings.DefaultCategory)
	}

	if p.Scoring.Floor <= 0 {
		return fmt.Errorf("%w: scoring.floor must be positive", ErrInvalidConfig)
	}
	if p.Settings.FallbackScore < 0 || p.Settings.FallbackScore > p.Scoring.Floor {
		return fmt.Errorf("%w: fallback_score %.2f must be within [0, scoring.floor=%.2f]",
			ErrInvalidConfig, p.Settings.FallbackScore, p.Scoring.Floor)
	}

	ids := make(map[string]struct{}, len(p.Sources))
	for _, s := range p.Sources {
		if s.ID == "" {
			return fmt.Errorf("%w: source without id", ErrInvalidConfig)
		}
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("%w: duplicate source %q", ErrInvalidConfig, s.ID)
		}
		ids[s.ID] = struct{}{}
		switch s.Kind {
		case model.KindPage, model.KindAPI, model.KindRSS:
			if s.URL == "" {
				return fmt.Errorf("%w: source %q has no url", ErrInvalidConfig, s.ID)
			}
		case model.KindHackerNews:
		default:
			return fmt.Errorf("%w: source %q has unknown kind %q", ErrInvalidConfig, s.ID, s.Kind)
		}
		if s.Category != "" {
			if _, ok := seen[s.Category]; !ok {
				log.Printf("warn: source %s declares unknown category %q, treated as generic", s.ID, s.Category)
			}
		}
	}
	return nil
}

// EnabledSources 返回启用的源，按 priority 升序，同优先级保持配置顺序
func (p *Pipeline) EnabledSources() []*model.Source {
	out := make([]*model.Source, 0, len(p.Sources))
	for _, sc := range p.Sources {
		if !sc.IsEnabled() {
			continue
		}
		out = append(out, sc.toSource(p.Settings))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

func (sc SourceConfig) toSource(s Settings) *model.Source {
	src := &model.Source{
		ID:             sc.ID,
		DisplayName:    sc.Name,
		CategoryHint:   sc.Category,
		Weight:         sc.Weight,
		Kind:           sc.Kind,
		Limit:          sc.Limit,
		Timeout:        sc.Timeout,
		Priority:       sc.Priority,
		URL:            sc.URL,
		ItemSelector:   sc.ItemSelector,
		TitleSelector:  sc.TitleSelector,
		HotSelector:    sc.HotSelector,
		ListPath:       sc.ListPath,
		PopularityUnit: sc.Unit,
		Headers:        sc.Headers,
		Translate:      sc.Translate,
	}
	if src.DisplayName == "" {
		src.DisplayName = sc.ID
	}
	if src.Weight <= 0 {
		src.Weight = 1
	}
	if src.Limit <= 0 {
		src.Limit = 10
	}
	if src.Timeout <= 0 {
		src.Timeout = s.Timeout
	}
	return src
}

// CategoryNames 按配置顺序返回分类名
func (p *Pipeline) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}

// ClassifierCategories 转成分类器需要的有序列表
func (p *Pipeline) ClassifierCategories() []processor.Category {
	out := make([]processor.Category, 0, len(p.Categories))
	for _, c := range p.Categories {
		out = append(out, processor.Category{Name: c.Name, Keywords: c.Keywords})
	}
	return out
}

// LimitFor 分类的条数上限
func (p *Pipeline) LimitFor(c CategoryConfig) int {
	if c.Limit > 0 {
		return c.Limit
	}
	return p.Settings.PerCategoryLimit
}

// Category 按名称查找分类配置
func (p *Pipeline) Category(name string) (CategoryConfig, bool) {
	for _, c := range p.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryConfig{}, false
}

// Icons 分类名到图标
func (p *Pipeline) Icons() map[string]string {
	out := make(map[string]string, len(p.Categories))
	for _, c := range p.Categories {
		if c.Icon != "" {
			out[c.Name] = c.Icon
		}
	}
	return out
}

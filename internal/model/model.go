package model

import "time"

// FetchKind 决定用哪一类采集器抓取某个数据源
type FetchKind string

const (
	KindPage       FetchKind = "page"       // HTML 页面 + CSS 选择器
	KindAPI        FetchKind = "api"        // JSON 接口
	KindRSS        FetchKind = "rss"        // RSS / Atom
	KindHackerNews FetchKind = "hackernews" // HN Firebase API
)

// Source 描述一个配置好的新闻源，一次运行内只读
type Source struct {
	ID          string
	DisplayName string
	// CategoryHint 为空或等于默认分类时视为“泛热点”，需要靠关键词分类
	CategoryHint string
	Weight       float64
	Kind         FetchKind
	Limit        int
	Timeout      time.Duration
	Priority     int

	URL string
	// 页面抓取用
	ItemSelector  string
	TitleSelector string
	HotSelector   string
	// 接口抓取用：点号分隔的列表路径，如 "data.cards.0.content"
	ListPath string
	// 接口返回的热度单位（count / thousand / wan），为空按原始计数处理
	PopularityUnit Unit
	Headers        map[string]string
	Translate      bool
}

// RawItem 单条未经清洗的候选标题
type RawItem struct {
	Text string
	// Signal 为 nil 表示数据源没有提供热度
	Signal *Signal
	// Rank 在数据源列表中的位置，从 1 开始
	Rank   int
	Source *Source
}

// NewsItem 清洗、分类、打分后的条目，打分后不再修改
type NewsItem struct {
	Title         string  `json:"title"`
	SourceID      string  `json:"sourceId"`
	SourceName    string  `json:"sourceName"`
	SourceWeight  float64 `json:"sourceWeight"`
	Category      string  `json:"category"`
	HotScore      float64 `json:"hotScore"`
	RawPopularity float64 `json:"rawPopularity,omitempty"`
	Fallback      bool    `json:"fallback,omitempty"`
	DedupeKey     string  `json:"-"`
}

// Bucket 单个分类的有序条目，长度不超过该分类的上限
type Bucket struct {
	Category string     `json:"category"`
	Items    []NewsItem `json:"items"`
}

// Organic 返回非兜底条目的数量
func (b Bucket) Organic() int {
	n := 0
	for _, it := range b.Items {
		if !it.Fallback {
			n++
		}
	}
	return n
}

// SourceReport 一次运行中单个数据源的采集情况
type SourceReport struct {
	SourceID string        `json:"sourceId"`
	Name     string        `json:"name"`
	Items    int           `json:"items"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      string        `json:"error,omitempty"`
}

func (r SourceReport) OK() bool {
	return r.Err == ""
}

// Result 一次聚合的全部输出：分类顺序与配置顺序一致
type Result struct {
	RunID      string         `json:"runId"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Buckets    []Bucket       `json:"buckets"`
	Sources    []SourceReport `json:"sources"`
}

// Categories 按配置顺序返回分类名
func (r *Result) Categories() []string {
	names := make([]string, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		names = append(names, b.Category)
	}
	return names
}

// Bucket 按名称查找分类
func (r *Result) Bucket(name string) (Bucket, bool) {
	for _, b := range r.Buckets {
		if b.Category == name {
			return b, true
		}
	}
	return Bucket{}, false
}

// Starved 所有数据源都失败时返回 true
func (r *Result) Starved() bool {
	if len(r.Sources) == 0 {
		return true
	}
	for _, s := range r.Sources {
		if s.OK() && s.Items > 0 {
			return false
		}
	}
	return true
}

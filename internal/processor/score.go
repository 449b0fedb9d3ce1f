package processor

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/HotDigest/internal/model"
)

// KeywordBonus 标题含有 Keyword 时加 Bonus 分
type KeywordBonus struct {
	Keyword string  `yaml:"keyword"`
	Bonus   float64 `yaml:"bonus"`
}

// ScoreConfig 热度估算参数，数值都是可调的经验值
type ScoreConfig struct {
	BaseHot   float64 `yaml:"base_hot"`
	RankDecay float64 `yaml:"rank_decay"`

	Keywords []KeywordBonus `yaml:"keywords"`

	SweetMinRunes int     `yaml:"sweet_min_runes"`
	SweetMaxRunes int     `yaml:"sweet_max_runes"`
	SweetBonus    float64 `yaml:"sweet_bonus"`
	LongRunes     int     `yaml:"long_runes"`
	LongPenalty   float64 `yaml:"long_penalty"`

	// 外部热度按 SignalScale*log10(1+count) 计入，最多 SignalCap
	SignalScale float64 `yaml:"signal_scale"`
	SignalCap   float64 `yaml:"signal_cap"`

	// Jitter 随机扰动的最大绝对值，应明显小于最小的关键词加分
	Jitter float64 `yaml:"jitter"`
	Floor  float64 `yaml:"floor"`
	// Seed 为 0 时按当前时间播种
	Seed uint64 `yaml:"seed"`
}

// Scorer 计算条目热度。持有随机源，不可并发使用
type Scorer struct {
	cfg ScoreConfig
	rnd *rand.Rand
}

func NewScorer(cfg ScoreConfig) *Scorer {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	kws := make([]KeywordBonus, 0, len(cfg.Keywords))
	for _, k := range cfg.Keywords {
		if k.Keyword = strings.ToLower(strings.TrimSpace(k.Keyword)); k.Keyword != "" {
			kws = append(kws, k)
		}
	}
	cfg.Keywords = kws
	return &Scorer{
		cfg: cfg,
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// BaseFor 榜单越靠前基础热度越高：BaseHot / (1 + RankDecay*(rank-1))
func (s *Scorer) BaseFor(rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	return s.cfg.BaseHot / (1 + s.cfg.RankDecay*float64(rank-1))
}

// Score hot = base*weight + 关键词加分 + 长度修正 + 外部热度 + 扰动，最后不低于 Floor
func (s *Scorer) Score(title string, baseHot, weight float64, sig *model.Signal) float64 {
	hot := baseHot * weight
	hot += s.keywordBonus(title)
	hot += s.lengthShaping(title)
	if sig != nil {
		hot += s.signalBonus(sig.Count())
	}
	if s.cfg.Jitter > 0 {
		hot += (s.rnd.Float64()*2 - 1) * s.cfg.Jitter
	}
	return s.clamp(hot)
}

func (s *Scorer) keywordBonus(title string) float64 {
	lower := strings.ToLower(title)
	bonus := 0.0
	for _, k := range s.cfg.Keywords {
		if containsKeyword(lower, k.Keyword) {
			bonus += k.Bonus
		}
	}
	return bonus
}

func (s *Scorer) lengthShaping(title string) float64 {
	n := utf8.RuneCountInString(title)
	switch {
	case s.cfg.LongRunes > 0 && n > s.cfg.LongRunes:
		return -s.cfg.LongPenalty
	case n >= s.cfg.SweetMinRunes && n <= s.cfg.SweetMaxRunes:
		return s.cfg.SweetBonus
	}
	return 0
}

func (s *Scorer) signalBonus(count float64) float64 {
	if count <= 0 || math.IsNaN(count) || math.IsInf(count, 0) {
		return 0
	}
	b := s.cfg.SignalScale * math.Log10(1+count)
	if s.cfg.SignalCap > 0 && b > s.cfg.SignalCap {
		b = s.cfg.SignalCap
	}
	return b
}

func (s *Scorer) clamp(hot float64) float64 {
	floor := s.cfg.Floor
	if floor < 0 {
		floor = 0
	}
	if math.IsNaN(hot) || math.IsInf(hot, 0) || hot < floor {
		return floor
	}
	return hot
}

// Floor 分数下限，兜底条目的分数不应高于它
func (s *Scorer) Floor() float64 {
	return s.cfg.Floor
}

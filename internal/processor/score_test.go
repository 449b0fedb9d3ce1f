package processor

import (
	"math"
	"strings"
	"testing"

	"github.com/LJTian/HotDigest/internal/model"
)

func testScoreConfig() ScoreConfig {
	return ScoreConfig{
		BaseHot:   100,
		RankDecay: 0.05,
		Keywords: []KeywordBonus{
			{Keyword: "国务院", Bonus: 20},
			{Keyword: "突发", Bonus: 15},
			{Keyword: "Breaking", Bonus: 15},
		},
		SweetMinRunes: 8,
		SweetMaxRunes: 30,
		SweetBonus:    10,
		LongRunes:     50,
		LongPenalty:   10,
		SignalScale:   8,
		SignalCap:     60,
		Floor:         1,
		Seed:          42,
	}
}

// 超过 50 个字的标题
var longTitle = "这是一个" + strings.Repeat("非常", 25) + "长的标题内容"

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreComponents(t *testing.T) {
	s := NewScorer(testScoreConfig())

	// 13 个字：命中 sweet spot，命中关键词 国务院
	title := "国务院常务会议部署重点工作"
	sig := &model.Signal{Value: 12, Unit: model.UnitTenThousand}

	got := s.Score(title, 100, 1.2, sig)
	want := 100*1.2 + 20 + 10 + 8*math.Log10(1+120000)
	if !approx(got, want) {
		t.Fatalf("Score = %v, want %v", got, want)
	}

	noSignal := s.Score(title, 100, 1.2, nil)
	if !(got > noSignal) {
		t.Fatalf("signal should raise score: %v vs %v", got, noSignal)
	}
}

func TestScoreKeywordsCaseInsensitive(t *testing.T) {
	s := NewScorer(testScoreConfig())
	a := s.Score("breaking news here", 10, 1, nil)
	b := s.Score("ordinary news here", 10, 1, nil)
	if !approx(a-b, 15) {
		t.Fatalf("keyword bonus = %v, want 15", a-b)
	}
	if c := s.Score("groundbreaking news here", 10, 1, nil); c > b+1 {
		t.Fatalf("keyword inside a longer word should not score, got %v vs %v", c, b)
	}
}

func TestScoreLengthShaping(t *testing.T) {
	s := NewScorer(testScoreConfig())
	short := s.Score("短标题", 50, 1, nil)
	sweet := s.Score("这是一个长度刚好合适的标题", 50, 1, nil)
	long := s.Score(longTitle, 50, 1, nil)
	if !approx(short, 50) || !approx(sweet, 60) || !approx(long, 40) {
		t.Fatalf("short=%v sweet=%v long=%v", short, sweet, long)
	}
}

func TestScoreSignalCapped(t *testing.T) {
	s := NewScorer(testScoreConfig())
	capped := s.Score("短标题", 0, 1, &model.Signal{Value: 1e30, Unit: model.UnitCount})
	if !approx(capped, 60) {
		t.Fatalf("capped signal score = %v, want 60", capped)
	}
}

func TestScoreClampsToFloor(t *testing.T) {
	cfg := testScoreConfig()
	cfg.LongPenalty = 1000
	s := NewScorer(cfg)

	if got := s.Score(longTitle, 10, 1, nil); got != 1 {
		t.Fatalf("Score = %v, want floor 1", got)
	}
	if got := s.Score("标题", math.NaN(), 1, nil); got != 1 {
		t.Fatalf("NaN score = %v, want floor 1", got)
	}
	if got := s.Score("标题", math.Inf(1), 1, nil); got != 1 {
		t.Fatalf("Inf score = %v, want floor 1", got)
	}
}

func TestScoreJitterIsBounded(t *testing.T) {
	cfg := testScoreConfig()
	cfg.Jitter = 0.5
	s := NewScorer(cfg)
	for i := 0; i < 200; i++ {
		got := s.Score("短标题", 50, 1, nil)
		if got < 49.5 || got > 50.5 {
			t.Fatalf("jittered score %v out of [49.5, 50.5]", got)
		}
	}
}

func TestBaseForDecaysWithRank(t *testing.T) {
	s := NewScorer(testScoreConfig())
	if !approx(s.BaseFor(1), 100) || !approx(s.BaseFor(0), 100) {
		t.Fatalf("BaseFor(1) = %v", s.BaseFor(1))
	}
	if !approx(s.BaseFor(21), 50) {
		t.Fatalf("BaseFor(21) = %v, want 50", s.BaseFor(21))
	}
}

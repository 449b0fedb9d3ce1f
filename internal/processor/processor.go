package processor

import (
	"github.com/LJTian/HotDigest/internal/model"
)

// Processor 把原始条目依次清洗、分类、打分，得到可排序的 NewsItem
type Processor struct {
	normalizer *Normalizer
	classifier *Classifier
	scorer     *Scorer
	keyRunes   int
}

func New(n *Normalizer, c *Classifier, s *Scorer, keyRunes int) *Processor {
	if keyRunes <= 0 {
		keyRunes = DefaultKeyRunes
	}
	return &Processor{normalizer: n, classifier: c, scorer: s, keyRunes: keyRunes}
}

// Process 清洗失败的条目直接丢弃，不算错误
func (p *Processor) Process(raw []model.RawItem) []model.NewsItem {
	out := make([]model.NewsItem, 0, len(raw))
	for _, it := range raw {
		title := p.normalizer.NormalizeItem(it)
		if title == "" {
			continue
		}

		var src model.Source
		if it.Source != nil {
			src = *it.Source
		}
		weight := src.Weight
		if weight <= 0 {
			weight = 1
		}

		sig := it.Signal
		if sig == nil {
			if tag, ok := HotTag(it.Text); ok {
				sig = &tag
			}
		}

		item := model.NewsItem{
			Title:        title,
			SourceID:     src.ID,
			SourceName:   src.DisplayName,
			SourceWeight: weight,
			Category:     p.classifier.Classify(title, src.CategoryHint),
			HotScore:     p.scorer.Score(title, p.scorer.BaseFor(it.Rank), weight, sig),
			DedupeKey:    DedupeKey(title, p.keyRunes),
		}
		if sig != nil {
			item.RawPopularity = sig.Count()
		}
		out = append(out, item)
	}
	return out
}

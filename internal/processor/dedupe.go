package processor

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/LJTian/HotDigest/internal/model"
)

// DefaultKeyRunes 去重键保留的字符数
const DefaultKeyRunes = 32

// DedupeKey 全半角折叠、转小写、只保留字母数字后取前 n 个字符。
// 仅用于相等比较，不展示。
func DedupeKey(title string, n int) string {
	if n <= 0 {
		n = DefaultKeyRunes
	}
	folded := strings.ToLower(width.Fold.String(title))
	out := make([]rune, 0, n)
	for _, r := range folded {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			continue
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	if len(out) == 0 {
		return strings.TrimSpace(folded)
	}
	return string(out)
}

// Dedupe 单遍合并去重键相同的条目，保留分数更高的一条（同分保留先出现的）。
// 输出顺序为各去重键首次出现的顺序。截断前缀之外的近似重复不处理。
func Dedupe(items []model.NewsItem) []model.NewsItem {
	if len(items) == 0 {
		return nil
	}
	index := make(map[string]int, len(items))
	out := make([]model.NewsItem, 0, len(items))
	for _, it := range items {
		key := it.DedupeKey
		if key == "" {
			key = DedupeKey(it.Title, DefaultKeyRunes)
		}
		if i, ok := index[key]; ok {
			if it.HotScore > out[i].HotScore {
				out[i] = it
			}
			continue
		}
		index[key] = len(out)
		out = append(out, it)
	}
	return out
}

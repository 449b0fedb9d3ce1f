package processor

import "strings"

// Category 一个分类及其关键词，关键词按子串匹配
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Classifier 按配置顺序匹配关键词，先匹配到的分类胜出。
// 匹配前标题与关键词都转小写；纯 ASCII 关键词（如 "AI"、"GDP"）按整词匹配，其余按子串匹配。
type Classifier struct {
	ordered         []Category
	defaultCategory string
	known           map[string]struct{}
}

// NewClassifier categories 的顺序即匹配优先级，默认分类不参与关键词匹配
func NewClassifier(categories []Category, defaultCategory string) *Classifier {
	c := &Classifier{
		defaultCategory: defaultCategory,
		known:           make(map[string]struct{}, len(categories)),
	}
	for _, cat := range categories {
		c.known[cat.Name] = struct{}{}
		if cat.Name == defaultCategory {
			continue
		}
		kws := make([]string, 0, len(cat.Keywords))
		for _, k := range cat.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		c.ordered = append(c.ordered, Category{Name: cat.Name, Keywords: kws})
	}
	return c
}

// Default 返回默认分类名
func (c *Classifier) Default() string {
	return c.defaultCategory
}

// Classify 源声明了具体分类时直接采用；否则按关键词匹配，都不中则归入默认分类。
// 未在配置中出现的分类提示按“泛热点”处理。
func (c *Classifier) Classify(title, hint string) string {
	if hint != "" && hint != c.defaultCategory {
		if _, ok := c.known[hint]; ok {
			return hint
		}
	}

	lower := strings.ToLower(title)
	for _, cat := range c.ordered {
		for _, k := range cat.Keywords {
			if containsKeyword(lower, k) {
				return cat.Name
			}
		}
	}
	return c.defaultCategory
}

// containsKeyword 纯 ASCII 关键词要求前后不是 ASCII 字母或数字，"ai" 不会命中 "said"；
// 含中文的关键词按子串匹配。s 与 k 需已转小写
func containsKeyword(s, k string) bool {
	if k == "" {
		return false
	}
	if !isASCII(k) {
		return strings.Contains(s, k)
	}
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], k)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(k)
		if (start == 0 || !isASCIIAlnum(s[start-1])) && (end == len(s) || !isASCIIAlnum(s[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isASCIIAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

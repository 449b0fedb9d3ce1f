package processor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/LJTian/HotDigest/internal/model"
)

// NormalizeConfig 标题清洗参数
type NormalizeConfig struct {
	MinRunes int `yaml:"min_title_runes"`
	// Exclusions 整条等于这些词（忽略大小写）时视为导航/样板文字
	Exclusions []string `yaml:"exclusions"`
	// Prefixes 站点名等样板前缀，源自身的显示名总会参与匹配
	Prefixes  []string `yaml:"boilerplate_prefixes"`
	AdMarkers []string `yaml:"ad_markers"`
	// FailureMarkers 含有这些词的条目是抓取失败的占位文字
	FailureMarkers []string `yaml:"failure_markers"`
}

var (
	hotTagRe   = regexp.MustCompile(`🔥\s*\d+(?:\.\d+)?\s*[wW万kK千亿]?`)
	ordinalRe  = regexp.MustCompile(`^(?:(?i:no)\.?\s*|(?i:top)\s*|第)?(\d{1,3})\s*([.、．:：)）\]】]|名)\s*`)
	invisibles = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "", "\u00a0", " ", "\u3000", " ")
)

const trimCutset = " -_|·:：,，;；"

// Normalizer 把抓到的杂乱文本清洗成规范标题；清洗结果再清洗一次不会变化
type Normalizer struct {
	minRunes   int
	exclusions map[string]struct{}
	prefixes   []string
	failures   []string
	adBracket  *regexp.Regexp
	adLead     *regexp.Regexp
	adTrail    *regexp.Regexp
}

func NewNormalizer(cfg NormalizeConfig) *Normalizer {
	n := &Normalizer{
		minRunes:   cfg.MinRunes,
		exclusions: make(map[string]struct{}, len(cfg.Exclusions)),
		prefixes:   cfg.Prefixes,
		failures:   cfg.FailureMarkers,
	}
	for _, e := range cfg.Exclusions {
		n.exclusions[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	if len(cfg.AdMarkers) > 0 {
		quoted := make([]string, 0, len(cfg.AdMarkers))
		for _, m := range cfg.AdMarkers {
			if m = strings.TrimSpace(m); m != "" {
				quoted = append(quoted, regexp.QuoteMeta(m))
			}
		}
		alt := "(?:" + strings.Join(quoted, "|") + ")"
		n.adBracket = regexp.MustCompile(`[【\[(（<]\s*` + alt + `\s*[】\])）>]`)
		n.adLead = regexp.MustCompile(`^` + alt + `[\s:：|]+`)
		n.adTrail = regexp.MustCompile(`\s+` + alt + `$`)
	}
	return n
}

// NormalizeItem 清洗一条原始条目；返回空串表示该条应被丢弃
func (n *Normalizer) NormalizeItem(item model.RawItem) string {
	name := ""
	if item.Source != nil {
		name = item.Source.DisplayName
	}
	return n.Normalize(item.Text, name)
}

// Normalize 反复清洗直到不再变化，然后做长度、样板与失败占位检查
func (n *Normalizer) Normalize(text, sourceName string) string {
	s := text
	for i := 0; i < 16; i++ {
		next := n.cleanOnce(s, sourceName)
		if next == s {
			break
		}
		s = next
	}
	if !n.accept(s) {
		return ""
	}
	return s
}

func (n *Normalizer) cleanOnce(s, sourceName string) string {
	s = stripMarkup(s)
	s = invisibles.Replace(s)
	s = hotTagRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")

	if n.adBracket != nil {
		s = n.adBracket.ReplaceAllString(s, " ")
		s = strings.Join(strings.Fields(s), " ")
		s = n.adLead.ReplaceAllString(s, "")
		s = n.adTrail.ReplaceAllString(s, "")
	}

	s = stripOrdinal(s)

	if sourceName != "" {
		s = stripAffix(s, sourceName)
	}
	for _, p := range n.prefixes {
		s = stripAffix(s, p)
	}

	return strings.Trim(s, trimCutset)
}

// stripMarkup 去掉标签并还原实体，标签处留一个空格
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		default:
			b.WriteByte(' ')
		}
	}
}

// stripOrdinal 去掉 "12. "、"3、"、"第5名" 之类的排名；"3.5万人"、"1:0" 这类紧跟数字的不动
func stripOrdinal(s string) string {
	loc := ordinalRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	rest := s[loc[1]:]
	if loc[5] == loc[1] {
		if r, _ := utf8.DecodeRuneInString(rest); unicode.IsDigit(r) {
			return s
		}
	}
	if strings.TrimSpace(rest) == "" {
		return s
	}
	return rest
}

// stripAffix 去掉 "人民网：xxx"、"【人民网】xxx"、"xxx - 人民网" 这类站点标签
func stripAffix(s, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || s == name {
		return s
	}
	for _, p := range []string{"【" + name + "】", "[" + name + "]", name + "：", name + ":", name + "|", name + " |", name + " -"} {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(strings.TrimPrefix(s, p))
		}
	}
	for _, suf := range []string{" - " + name, " | " + name, "_" + name, "-" + name, "|" + name} {
		if strings.HasSuffix(s, suf) {
			return strings.TrimSpace(strings.TrimSuffix(s, suf))
		}
	}
	return s
}

func (n *Normalizer) accept(s string) bool {
	if s == "" || utf8.RuneCountInString(s) < n.minRunes {
		return false
	}
	if _, ok := n.exclusions[strings.ToLower(s)]; ok {
		return false
	}
	for _, f := range n.failures {
		if f != "" && strings.Contains(s, f) {
			return false
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// HotTag 从原始文本里的 "🔥12w" 标记解析热度，数据源没有单独给出热度时使用
func HotTag(text string) (model.Signal, bool) {
	m := hotTagRe.FindString(text)
	if m == "" {
		return model.Signal{}, false
	}
	return model.ParseSignal(m)
}

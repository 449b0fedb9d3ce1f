package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/LJTian/HotDigest/internal/model"
)

const (
	translateMaxResponseBytes = 256 * 1024
	translateMaxRunes         = 500
	translateTimeout          = 8 * time.Second
	translateBudget           = 5 * time.Second // 一批标题的默认翻译预算

	defaultGoogleTranslateURL = "https://translate.googleapis.com/translate_a/single"
	defaultMyMemoryURL        = "https://api.mymemory.translated.net/get"
)

// Translator 把外文标题翻成中文：先试 Google 公开接口（client=gtx），再试 MyMemory，都失败时保留原文。
// 译文按原文缓存，同一标题在多轮之间只请求一次。
type Translator struct {
	Client      *http.Client
	GoogleURL   string
	MyMemoryURL string
	// Budget 一次采集结果的翻译总时长，用完后剩余标题保留原文；不超过抓取剩余时间的一半
	Budget time.Duration

	cache sync.Map // 原文 -> 译文
}

func NewTranslator() *Translator {
	return &Translator{
		Client:      &http.Client{Timeout: translateTimeout},
		GoogleURL:   defaultGoogleTranslateURL,
		MyMemoryURL: defaultMyMemoryURL,
		Budget:      translateBudget,
	}
}

// budget 计算本批翻译可用的时长，给调用方留出返回结果的时间
func (t *Translator) budget(ctx context.Context) time.Duration {
	b := t.Budget
	if b <= 0 {
		b = translateBudget
	}
	if deadline, ok := ctx.Deadline(); ok {
		if rest := time.Until(deadline) / 2; rest < b {
			b = rest
		}
	}
	return b
}

// Translate 已是中文的文本原样返回
func (t *Translator) Translate(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if isMostlyChinese(text) {
		return text
	}
	if rs := []rune(text); len(rs) > translateMaxRunes {
		text = string(rs[:translateMaxRunes])
	}
	if v, ok := t.cache.Load(text); ok {
		return v.(string)
	}

	out := t.viaGoogle(ctx, text)
	if out == "" && ctx.Err() == nil {
		out = t.viaMyMemory(ctx, text)
	}
	if out == "" {
		return text
	}
	t.cache.Store(text, out)
	return out
}

func (t *Translator) get(ctx context.Context, apiURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: translateTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, translateMaxResponseBytes))
}

// viaGoogle 响应格式: [[["译文","原文",...],...],...]，逐段拼接
func (t *Translator) viaGoogle(ctx context.Context, text string) string {
	body, err := t.get(ctx, t.GoogleURL+"?client=gtx&sl=auto&tl=zh-CN&dt=t&q="+url.QueryEscape(text))
	if err != nil {
		log.Printf("translate (google-gtx): %v", err)
		return ""
	}
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return ""
	}
	segments, ok := raw[0].([]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, seg := range segments {
		if pair, ok := seg.([]any); ok && len(pair) > 0 {
			if s, ok := pair[0].(string); ok {
				b.WriteString(s)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func (t *Translator) viaMyMemory(ctx context.Context, text string) string {
	body, err := t.get(ctx, t.MyMemoryURL+"?langpair="+myMemoryLang(text)+"|zh&q="+url.QueryEscape(text))
	if err != nil {
		log.Printf("translate (mymemory): %v", err)
		return ""
	}
	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return ""
	}
	return strings.TrimSpace(out.ResponseData.TranslatedText)
}

// translating 在采集结果上做标题翻译，热度与排名不变
type translating struct {
	inner Fetcher
	tr    *Translator
}

func (t translating) Fetch(ctx context.Context, src *model.Source) ([]model.RawItem, error) {
	items, err := t.inner.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	b := t.tr.budget(ctx)
	if b <= 0 {
		return items, nil
	}
	tctx, cancel := context.WithTimeout(ctx, b)
	defer cancel()
	for i := range items {
		if tctx.Err() != nil {
			log.Printf("warn: translate %s: budget %s used up, %d titles kept as is", src.ID, b, len(items)-i)
			break
		}
		items[i].Text = t.tr.Translate(tctx, items[i].Text)
	}
	return items, nil
}

// isMostlyChinese 至少两个汉字，或汉字占非空白字符的四分之一以上
func isMostlyChinese(s string) bool {
	var cjk, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) || (r >= 0x3000 && r <= 0x303f) {
			cjk++
		}
	}
	if total == 0 {
		return true
	}
	return cjk >= 1 && (cjk*4 >= total || cjk >= 2)
}

// myMemoryLang MyMemory 需要显式的源语言：含假名按日文，其余按英文
func myMemoryLang(s string) string {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			return "ja"
		}
	}
	return "en"
}

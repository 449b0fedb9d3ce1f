// Package digest 把聚合结果渲染成纯文本摘要
package digest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LJTian/HotDigest/internal/model"
)

// Options 渲染参数，零值可用
type Options struct {
	Title string
	// Icons 分类名到图标，缺省时不显示图标
	Icons    map[string]string
	Location *time.Location
	// ShowSources 附带各数据源采集情况
	ShowSources bool
}

// RenderText 按分类输出 "  1. 标题 [来源]"，兜底条目不标来源
func RenderText(res *model.Result, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	title := opts.Title
	if title == "" {
		title = "每日新闻速递"
	}
	at := res.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.In(loc)

	var b strings.Builder
	fmt.Fprintf(&b, "📰 %s (%s)\n", title, at.Format("2006年01月02日"))
	b.WriteString(strings.Repeat("=", 44) + "\n")
	fmt.Fprintf(&b, "更新时间: %s\n", at.Format("15:04:05"))

	for _, bucket := range res.Buckets {
		if len(bucket.Items) == 0 {
			continue
		}
		if icon := opts.Icons[bucket.Category]; icon != "" {
			fmt.Fprintf(&b, "\n%s 【%s】\n", icon, bucket.Category)
		} else {
			fmt.Fprintf(&b, "\n【%s】\n", bucket.Category)
		}
		for i, it := range bucket.Items {
			if it.Fallback {
				fmt.Fprintf(&b, "  %d. %s\n", i+1, it.Title)
				continue
			}
			fmt.Fprintf(&b, "  %d. %s [%s]\n", i+1, it.Title, it.SourceName)
		}
	}

	if opts.ShowSources && len(res.Sources) > 0 {
		b.WriteString("\n" + strings.Repeat("-", 44) + "\n")
		for _, s := range res.Sources {
			if s.OK() {
				fmt.Fprintf(&b, "  ✅ %s: %d 条\n", s.Name, s.Items)
			} else {
				fmt.Fprintf(&b, "  ❌ %s: %s\n", s.Name, s.Err)
			}
		}
	}
	if res.Starved() {
		b.WriteString("\n⚠️ 本期所有数据源均未获取到内容，以上为精选内容\n")
	}
	b.WriteString(strings.Repeat("=", 44) + "\n")
	return b.String()
}

// Writer 把每轮结果以文本形式写到 W，可作为调度器的结果出口
type Writer struct {
	W    io.Writer
	Opts Options
}

func (w Writer) Publish(_ context.Context, res *model.Result) error {
	_, err := io.WriteString(w.W, RenderText(res, w.Opts))
	return err
}

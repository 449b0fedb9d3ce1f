package config

import (
	"time"

	"github.com/LJTian/HotDigest/internal/model"
	"github.com/LJTian/HotDigest/internal/processor"
)

// Default 内置配置：没有配置文件时直接可用
func Default() *Pipeline {
	return &Pipeline{
		Settings: Settings{
			PerCategoryLimit: 5,
			DefaultCategory:  "热点",
			RequestDelay:     1500 * time.Millisecond,
			MaxRetries:       3,
			BackoffBase:      time.Second,
			BackoffMax:       8 * time.Second,
			Timeout:          15 * time.Second,
			MaxInFlight:      4,
			RunTimeout:       2 * time.Minute,
			FallbackScore:    1,
			DedupeKeyRunes:   processor.DefaultKeyRunes,
		},
		Sources:    defaultSources(),
		Categories: defaultCategories(),
		Normalize: processor.NormalizeConfig{
			MinRunes:       4,
			Exclusions:     []string{"首页", "更多", "登录", "注册", "网站地图", "返回顶部", "home", "sitemap", "more", "login"},
			Prefixes:       []string{"新华社", "新华网", "人民网", "央视新闻", "中国新闻网"},
			AdMarkers:      []string{"广告", "推广", "赞助", "AD"},
			FailureMarkers: []string{"数据获取失败", "抓取失败"},
		},
		Scoring: processor.ScoreConfig{
			BaseHot:   100,
			RankDecay: 0.05,
			Keywords: []processor.KeywordBonus{
				{Keyword: "习近平", Bonus: 30},
				{Keyword: "总书记", Bonus: 25},
				{Keyword: "国务院", Bonus: 20},
				{Keyword: "独家", Bonus: 15},
				{Keyword: "突发", Bonus: 15},
				{Keyword: "重磅", Bonus: 10},
				{Keyword: "最新", Bonus: 5},
				{Keyword: "breaking", Bonus: 15},
				{Keyword: "exclusive", Bonus: 15},
			},
			SweetMinRunes: 8,
			SweetMaxRunes: 30,
			SweetBonus:    10,
			LongRunes:     50,
			LongPenalty:   15,
			SignalScale:   8,
			SignalCap:     60,
			Jitter:        0.5,
			Floor:         1,
		},
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		},
	}
}

func defaultSources() []SourceConfig {
	return []SourceConfig{
		{
			ID:            "baidu",
			Name:          "百度热搜",
			Category:      "热点",
			Weight:        1.0,
			Kind:          model.KindPage,
			URL:           "https://top.baidu.com/board?tab=realtime",
			ItemSelector:  ".category-wrap_iQLoo",
			TitleSelector: ".c-single-text-ellipsis",
			HotSelector:   ".hot-index_1Bl1a",
			Limit:         10,
			Priority:      1,
		},
		{
			ID:       "zhihu",
			Name:     "知乎热榜",
			Category: "热点",
			Weight:   1.1,
			Kind:     model.KindAPI,
			URL:      "https://www.zhihu.com/api/v3/feed/topstory/hot-lists/total?limit=50",
			ListPath: "data",
			Limit:    10,
			Priority: 2,
		},
		{
			ID:       "weibo",
			Name:     "微博热搜",
			Category: "热点",
			Weight:   1.2,
			Kind:     model.KindAPI,
			URL:      "https://weibo.com/ajax/side/hotSearch",
			ListPath: "data.realtime",
			Limit:    10,
			Priority: 2,
		},
		{
			ID:       "toutiao",
			Name:     "今日头条",
			Category: "热点",
			Weight:   1.0,
			Kind:     model.KindAPI,
			URL:      "https://www.toutiao.com/hot-event/hot-board/?origin=toutiao_pc",
			ListPath: "data",
			Limit:    10,
			Priority: 3,
		},
		{
			ID:       "people",
			Name:     "人民网",
			Category: "时政",
			Weight:   1.3,
			Kind:     model.KindRSS,
			URL:      "http://www.people.com.cn/rss/politics.xml",
			Limit:    10,
			Priority: 4,
		},
		{
			ID:        "hackernews",
			Name:      "Hacker News",
			Category:  "科技",
			Weight:    0.8,
			Kind:      model.KindHackerNews,
			Limit:     10,
			Priority:  5,
			Translate: true,
		},
	}
}

func defaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			Name:     "时政",
			Icon:     "🏛️",
			Keywords: []string{"习近平", "总书记", "国务院", "中央", "外交部", "两会", "人大", "政协", "常务会议", "部署"},
			Fallback: []string{
				"国务院常务会议研究部署近期重点工作",
				"外交部就近期国际热点问题答记者问",
				"全国人大常委会审议多项法律草案",
				"中央经济工作会议精神持续落实",
				"各地推进政务服务“一网通办”",
			},
		},
		{
			Name:     "经济",
			Icon:     "💰",
			Keywords: []string{"经济", "GDP", "央行", "降准", "利率", "股市", "A股", "楼市", "消费", "外贸", "通胀", "财政"},
			Fallback: []string{
				"国家统计局发布最新宏观经济数据",
				"央行开展公开市场操作保持流动性合理充裕",
				"多地出台促消费新举措",
				"前三季度外贸进出口保持平稳",
				"A股市场今日行情回顾",
			},
		},
		{
			Name:     "民生",
			Icon:     "🏠",
			Keywords: []string{"医保", "社保", "养老", "教育", "高考", "就业", "住房", "天气", "交通", "医疗", "食品"},
			Fallback: []string{
				"医保报销范围进一步扩大",
				"多地公布最新就业扶持政策",
				"教育部部署新学期重点工作",
				"中央气象台发布天气预报",
				"城市公共交通服务持续优化",
			},
		},
		{
			Name:     "科技",
			Icon:     "🚀",
			Keywords: []string{"科技", "芯片", "人工智能", "AI", "大模型", "5G", "航天", "卫星", "火箭", "机器人", "新能源"},
			Fallback: []string{
				"国产大模型能力持续提升",
				"我国航天事业再获新进展",
				"芯片产业链加快自主创新",
				"新能源汽车产销保持增长",
				"人工智能赋能千行百业",
			},
		},
		{
			Name: "热点",
			Icon: "🔥",
			Fallback: []string{
				"今日热点新闻速览",
				"网友热议的社会话题",
				"近期值得关注的文化活动",
				"体育赛事精彩瞬间回顾",
				"各地特色民俗活动掠影",
			},
		},
	}
}

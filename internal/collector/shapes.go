package collector

import (
	"strconv"
	"strings"
	"sync"

	"github.com/LJTian/HotDigest/internal/model"
)

// Shape 屏蔽不同 JSON 接口的字段差异：从单个元素里取标题和热度
type Shape interface {
	Title(item any) string
	Popularity(item any) (model.Signal, bool)
}

// fieldShape 以字段路径描述的通用 Shape，按顺序取第一个非空字段
type fieldShape struct {
	titles []string
	hots   []string
}

func (s fieldShape) Title(item any) string {
	if str, ok := item.(string); ok {
		return strings.TrimSpace(str)
	}
	for _, path := range s.titles {
		v, ok := lookupPath(item, path)
		if !ok {
			continue
		}
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			return strings.TrimSpace(str)
		}
	}
	return ""
}

func (s fieldShape) Popularity(item any) (model.Signal, bool) {
	for _, path := range s.hots {
		v, ok := lookupPath(item, path)
		if !ok {
			continue
		}
		if sig, ok := signalOf(v); ok {
			return sig, true
		}
	}
	return model.Signal{}, false
}

// signalOf 数字按原始计数处理，字符串交给 ParseSignal 识别单位
func signalOf(v any) (model.Signal, bool) {
	switch x := v.(type) {
	case float64:
		if x > 0 {
			return model.Signal{Value: x, Unit: model.UnitCount}, true
		}
	case int:
		if x > 0 {
			return model.Signal{Value: float64(x), Unit: model.UnitCount}, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			if f > 0 {
				return model.Signal{Value: f, Unit: model.UnitCount}, true
			}
			return model.Signal{}, false
		}
		return model.ParseSignal(x)
	}
	return model.Signal{}, false
}

var genericShape = fieldShape{
	titles: []string{"title", "name", "word", "note", "query", "Title"},
	hots:   []string{"hot", "hot_value", "hotValue", "HotValue", "num", "heat", "hotScore", "score", "views"},
}

var (
	shapesMu sync.RWMutex
	shapes   = map[string]Shape{
		"zhihu": fieldShape{
			titles: []string{"target.title", "target.title_area.text", "title"},
			hots:   []string{"detail_text", "target.metrics_area.text"},
		},
		"weibo": fieldShape{
			titles: []string{"note", "word", "desc"},
			hots:   []string{"num", "raw_hot"},
		},
		"toutiao": fieldShape{
			titles: []string{"Title", "title"},
			hots:   []string{"HotValue", "hot_value"},
		},
		"baidu": fieldShape{
			titles: []string{"word", "query", "desc"},
			hots:   []string{"hotScore", "hot_score"},
		},
		"bilibili": fieldShape{
			titles: []string{"title", "keyword", "show_name"},
			hots:   []string{"stat.view", "heat_score"},
		},
	}
)

// RegisterShape 为某个源 id 注册字段适配
func RegisterShape(sourceID string, s Shape) {
	shapesMu.Lock()
	defer shapesMu.Unlock()
	shapes[sourceID] = s
}

// ShapeFor 返回源 id 对应的 Shape，未注册时用通用字段
func ShapeFor(sourceID string) Shape {
	shapesMu.RLock()
	defer shapesMu.RUnlock()
	if s, ok := shapes[sourceID]; ok {
		return s
	}
	return genericShape
}

// lookupPath 按点号路径取值，数字段作为数组下标
func lookupPath(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

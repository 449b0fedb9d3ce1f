package model

import (
	"strconv"
	"strings"
	"unicode"
)

// Unit 热度数值的单位
type Unit string

const (
	UnitCount          Unit = "count"
	UnitThousand       Unit = "thousand"
	UnitTenThousand    Unit = "wan"
	UnitHundredMillion Unit = "yi"
)

// Multiplier 返回单位对应的倍数，未知单位按 1 处理
func (u Unit) Multiplier() float64 {
	switch u {
	case UnitThousand:
		return 1e3
	case UnitTenThousand:
		return 1e4
	case UnitHundredMillion:
		return 1e8
	default:
		return 1
	}
}

// Signal 数据源给出的热度，例如 12 + wan 表示 12 万
type Signal struct {
	Value float64
	Unit  Unit
}

// Count 换算成原始计数
func (s Signal) Count() float64 {
	if s.Value <= 0 {
		return 0
	}
	return s.Value * s.Unit.Multiplier()
}

// ParseSignal 从 "🔥12w"、"4,987,654"、"1234 万热度"、"3.2亿"、"12.3k" 之类的文本中解析热度。
// 只取第一个数字及紧随其后的单位。
func ParseSignal(text string) (Signal, bool) {
	rs := []rune(strings.ReplaceAll(text, ",", ""))
	start := -1
	for i, r := range rs {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return Signal{}, false
	}

	end := start
	dot := false
	for end < len(rs) {
		r := rs[end]
		if r >= '0' && r <= '9' {
			end++
			continue
		}
		if r == '.' && !dot && end+1 < len(rs) && rs[end+1] >= '0' && rs[end+1] <= '9' {
			dot = true
			end++
			continue
		}
		break
	}

	v, err := strconv.ParseFloat(string(rs[start:end]), 64)
	if err != nil || v <= 0 {
		return Signal{}, false
	}

	unit := UnitCount
	rest := rs[end:]
	for len(rest) > 0 && unicode.IsSpace(rest[0]) {
		rest = rest[1:]
	}
	if len(rest) > 0 {
		switch rest[0] {
		case 'w', 'W', '万':
			unit = UnitTenThousand
		case 'k', 'K', '千':
			unit = UnitThousand
		case '亿':
			unit = UnitHundredMillion
		}
	}
	return Signal{Value: v, Unit: unit}, true
}

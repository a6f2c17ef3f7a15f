// Package conv 提供字符串清洗与类型转换工具，用于目录加载与命令行参数解析。
package conv

import (
	"math"
	"strconv"
	"strings"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32；bool 视为 1.0/0.0。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// StripChars 删除 s 中出现在 chars 里的所有字符。
func StripChars(s, chars string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return -1
		}
		return r
	}, s)
}

// DigitsOnly 只保留 ASCII 数字。
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// ParseFloat 去掉 strip 中的字符和首尾空白后解析为 float64。
// 无法解析（包括空串、NaN、Inf）返回 (0, false)。
func ParseFloat(s, strip string) (float64, bool) {
	s = strings.TrimSpace(StripChars(s, strip))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseCount 取出 s 中的全部数字解析为 int，例如 "24,269" -> 24269。没有数字返回 0。
func ParseCount(s string) int {
	d := DigitsOnly(s)
	if d == "" {
		return 0
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return 0
	}
	return n
}

// ParseScalar 把命令行参数值转换为最贴近的标量类型：int64、float64、bool，否则原样返回 string。
func ParseScalar(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// SplitNonEmpty 按 sep 切分并丢弃空段（去首尾空白后为空的段）。
func SplitNonEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

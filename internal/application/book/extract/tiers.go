package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencePattern 第一个 ``` 代码块，语言标记可选
var fencePattern = regexp.MustCompile("(?s)```[ \t]*([A-Za-z0-9_-]*)[ \t]*\r?\n?(.*?)```")

// ArrayKey 顶层为 JSON 数组时，数组放在该键下包装成对象
const ArrayKey = "items"

// parseObject 接受顶层为 JSON 对象或数组的文本，其后不允许有多余内容
func parseObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	switch s[0] {
	case '{':
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
			return nil, false
		}
		return obj, true
	case '[':
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err != nil || arr == nil {
			return nil, false
		}
		return map[string]any{ArrayKey: arr}, true
	}
	return nil, false
}

func parseDirect(raw string) (map[string]any, bool) {
	return parseObject(raw)
}

func parseFenced(raw string) (map[string]any, bool) {
	m := fencePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return parseObject(m[2])
}

func parseBraceSpan(raw string) (map[string]any, bool) {
	span, ok := braceSpan(raw)
	if !ok {
		return nil, false
	}
	return parseObject(Repair(span))
}

// braceSpan 第一个 { 到最后一个 }
func braceSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

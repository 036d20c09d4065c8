package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// 模型输出的字段类型经常漂移（数字写成字符串、列表写成逗号分隔的字符串），
// 以下类型在解码时做宽松转换。

// flexString 接受字符串、数字、布尔或字符串数组
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
	case '[':
		var list stringList
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = flexString(strings.Join(list, ", "))
	case '{':
		return fmt.Errorf("cannot decode object into string")
	default:
		*s = flexString(strings.TrimSpace(string(data)))
	}
	return nil
}

// flexInt 接受数字或数字字符串，缺失时为 nil
type flexInt struct {
	set   bool
	value int
}

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = flexInt{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*n = flexInt{}
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// "3000 words" 之类取前导数字
		digits := leadingDigits(raw)
		if digits == "" {
			*n = flexInt{}
			return nil
		}
		f, _ = strconv.ParseFloat(digits, 64)
	}
	*n = flexInt{set: true, value: int(f)}
	return nil
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// stringList 接受字符串数组、单个字符串或混合类型数组
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*l = splitList(v)
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch v := item.(type) {
		case string:
			s = v
		case nil:
			continue
		case map[string]any:
			s = firstStringField(v)
		default:
			s = fmt.Sprint(v)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

func splitList(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(p), "-*•")); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// firstStringField 对象数组里取 name/title/text 之一
func firstStringField(m map[string]any) string {
	for _, k := range []string{"name", "title", "text", "description"} {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

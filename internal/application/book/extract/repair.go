package extract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Repair 对类 JSON 文本依次执行固定的文本修复：
// 给未加引号的键加引号、去掉 ] 或 } 前的多余逗号、给裸词值加引号、单引号字符串改为双引号。
// 每一步都跳过字符串内部的内容。
func Repair(s string) string {
	s = quoteKeys(s)
	s = stripTrailingCommas(s)
	s = quoteBareValues(s)
	s = normalizeSingleQuotes(s)
	return s
}

// isStructural 单引号只有出现在这些字符之后才被当作字符串起点
func isStructural(prev byte) bool {
	switch prev {
	case 0, '{', '[', ',', ':':
		return true
	}
	return false
}

// stringEnd 返回从 i 处引号开始的字符串结束后的位置，未闭合时返回 len(s)
func stringEnd(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(s)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// startsString 判断 i 处是否为字符串起点
func startsString(s string, i int, prev byte) bool {
	return s[i] == '"' || (s[i] == '\'' && isStructural(prev))
}

// quoteKeys key: -> "key":
func quoteKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	var prev byte
	for i := 0; i < len(s); {
		c := s[i]
		if startsString(s, i, prev) {
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			prev = '"'
			i = end
			continue
		}
		if isIdentStart(c) && (prev == '{' || prev == ',') {
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			k := j
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
				b.WriteString(s[j:k])
				prev = '"'
				i = k
				continue
			}
			b.WriteString(s[i:j])
			prev = s[j-1]
			i = j
			continue
		}
		b.WriteByte(c)
		if !isSpace(c) {
			prev = c
		}
		i++
	}
	return b.String()
}

// stripTrailingCommas ,} -> }  ,] -> ]
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev byte
	for i := 0; i < len(s); {
		c := s[i]
		if startsString(s, i, prev) {
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			prev = '"'
			i = end
			continue
		}
		if c == ',' {
			k := i + 1
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if k < len(s) && (s[k] == '}' || s[k] == ']') {
				i++
				continue
			}
		}
		b.WriteByte(c)
		if !isSpace(c) {
			prev = c
		}
		i++
	}
	return b.String()
}

// quoteBareValues tone: friendly and warm, -> "tone": "friendly and warm",
// true/false/null 与合法数字保持不变
func quoteBareValues(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	var prev byte
	var stack []byte
	for i := 0; i < len(s); {
		c := s[i]
		if startsString(s, i, prev) {
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			prev = '"'
			i = end
			continue
		}
		switch c {
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}

		inArray := len(stack) > 0 && stack[len(stack)-1] == '['
		valuePos := prev == ':' || (inArray && (prev == '[' || prev == ','))
		if valuePos && !isSpace(c) && !strings.ContainsRune(`"'{[]},`, rune(c)) {
			j := i
			for j < len(s) && !strings.ContainsRune(",}]\n", rune(s[j])) {
				j++
			}
			token := strings.TrimRight(s[i:j], " \t\r")
			b.WriteString(quoteIfBare(token))
			b.WriteString(s[i+len(token) : j])
			prev = '"'
			i = j
			continue
		}

		b.WriteByte(c)
		if !isSpace(c) {
			prev = c
		}
		i++
	}
	return b.String()
}

func quoteIfBare(token string) string {
	switch token {
	case "true", "false", "null":
		return token
	}
	if _, err := strconv.ParseFloat(token, 64); err == nil && json.Valid([]byte(token)) {
		return token
	}
	quoted, _ := json.Marshal(token)
	return string(quoted)
}

// normalizeSingleQuotes 'value' -> "value"
func normalizeSingleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev byte
	for i := 0; i < len(s); {
		c := s[i]
		if c == '"' {
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			prev = '"'
			i = end
			continue
		}
		if c == '\'' && isStructural(prev) {
			end := stringEnd(s, i)
			inner := s[i+1 : end]
			if strings.HasSuffix(inner, "'") {
				inner = inner[:len(inner)-1]
			}
			inner = strings.ReplaceAll(inner, `\'`, `'`)
			quoted, _ := json.Marshal(unescapeJSONish(inner))
			b.Write(quoted)
			prev = '"'
			i = end
			continue
		}
		b.WriteByte(c)
		if !isSpace(c) {
			prev = c
		}
		i++
	}
	return b.String()
}

// unescapeJSONish 还原单引号字符串里已有的转义，避免二次转义
func unescapeJSONish(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var out string
	if err := json.Unmarshal([]byte(`"`+strings.ReplaceAll(s, `"`, `\"`)+`"`), &out); err != nil {
		return s
	}
	return out
}

package chain

import "strings"

// responseFormatMarkers 提供商拒绝 response_format 时常见的报错片段
var responseFormatMarkers = [][]string{
	{"response_format"},
	{"json_object"},
	{"json_schema"},
	{"unknown parameter", "response"},
	{"invalid", "response"},
}

// IsResponseFormatUnsupportedError 判断错误是否由不支持 JSON 输出模式引起
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range responseFormatMarkers {
		matched := true
		for _, marker := range group {
			if !strings.Contains(msg, marker) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

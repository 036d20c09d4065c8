// Package policy 单元生成的采样参数策略
package policy

import (
	"math"
	"strings"
)

const (
	TemperatureCreative = 0.9
	TemperatureAcademic = 0.5
	TemperatureDefault  = 0.7

	DefaultTokenMultiplier = 1.5
	DefaultTokenHardCap    = 8000
)

var (
	creativeMarkers = []string{"creative", "inspirational"}
	academicMarkers = []string{"academic", "technical"}
)

// TemperatureFor 按书籍语气选择采样温度，大小写不敏感的子串匹配
func TemperatureFor(tone string) float32 {
	t := strings.ToLower(tone)
	switch {
	case containsAny(t, creativeMarkers):
		return TemperatureCreative
	case containsAny(t, academicMarkers):
		return TemperatureAcademic
	default:
		return TemperatureDefault
	}
}

// TokenCeiling min(ceil(estimatedLength*1.5), hardCap)
func TokenCeiling(estimatedLength, hardCap int) int {
	return Policy{TokenMultiplier: DefaultTokenMultiplier, TokenHardCap: hardCap}.TokenCeiling(estimatedLength)
}

// Policy 可配置的参数策略
type Policy struct {
	TokenMultiplier float64
	// TokenHardCap 非正数表示不设上限
	TokenHardCap int
}

// Default 默认策略
func Default() Policy {
	return Policy{TokenMultiplier: DefaultTokenMultiplier, TokenHardCap: DefaultTokenHardCap}
}

// TemperatureFor 见包级 TemperatureFor
func (p Policy) TemperatureFor(tone string) float32 {
	return TemperatureFor(tone)
}

// TokenCeiling 由预估篇幅推导生成上限；预估非正时直接取上限
func (p Policy) TokenCeiling(estimatedLength int) int {
	if estimatedLength <= 0 {
		return p.TokenHardCap
	}
	mult := p.TokenMultiplier
	if mult <= 0 {
		mult = DefaultTokenMultiplier
	}
	ceiling := int(math.Ceil(float64(estimatedLength) * mult))
	if p.TokenHardCap > 0 && ceiling > p.TokenHardCap {
		return p.TokenHardCap
	}
	return ceiling
}

// WordCount 按空白切分统计字数
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

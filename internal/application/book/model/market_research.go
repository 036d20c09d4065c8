// Package model 定义书籍生成流水线各阶段的结构化结果
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 调研结果缺字段时的兜底值
const (
	DefaultTargetAudience = "General readers interested in the topic"
	DefaultTone           = "Informative and engaging"
	DefaultStyle          = "Clear, practical and well structured"
	DefaultMarketPosition = "A practical guide that fills gaps left by existing books"
)

// MarketResearch 市场调研阶段的结果
type MarketResearch struct {
	TargetAudience string   `json:"target_audience"`
	PainPoints     []string `json:"pain_points"`
	Desires        []string `json:"desires"`
	MarketGaps     []string `json:"market_gaps"`
	Tone           string   `json:"tone"`
	Style          string   `json:"style"`
	MarketPosition string   `json:"market_position"`
	Competitors    []string `json:"competitors,omitempty"`
	TitleIdeas     []string `json:"title_ideas,omitempty"`
}

type rawMarketResearch struct {
	TargetAudience flexString `json:"target_audience"`
	Audience       flexString `json:"audience"`
	PainPoints     stringList `json:"pain_points"`
	Desires        stringList `json:"desires"`
	MarketGaps     stringList `json:"market_gaps"`
	Gaps           stringList `json:"gaps"`
	Tone           flexString `json:"tone"`
	Style          flexString `json:"style"`
	MarketPosition flexString `json:"market_position"`
	Competitors    stringList `json:"competitors"`
	TitleIdeas     stringList `json:"title_ideas"`
}

// DecodeMarketResearch 从提取出的结构化对象解码调研结果，未知字段忽略
func DecodeMarketResearch(obj map[string]any) (*MarketResearch, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode market research: %w", err)
	}
	var raw rawMarketResearch
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode market research: %w", err)
	}

	m := &MarketResearch{
		TargetAudience: firstNonEmpty(string(raw.TargetAudience), string(raw.Audience)),
		PainPoints:     raw.PainPoints,
		Desires:        raw.Desires,
		MarketGaps:     raw.MarketGaps,
		Tone:           string(raw.Tone),
		Style:          string(raw.Style),
		MarketPosition: string(raw.MarketPosition),
		Competitors:    raw.Competitors,
		TitleIdeas:     raw.TitleIdeas,
	}
	if len(m.MarketGaps) == 0 {
		m.MarketGaps = raw.Gaps
	}
	return m, nil
}

// Normalize 为空字段填充兜底值，后续阶段不会看到空白画像
func (m *MarketResearch) Normalize() *MarketResearch {
	if m == nil {
		m = &MarketResearch{}
	}
	if strings.TrimSpace(m.TargetAudience) == "" {
		m.TargetAudience = DefaultTargetAudience
	}
	if strings.TrimSpace(m.Tone) == "" {
		m.Tone = DefaultTone
	}
	if strings.TrimSpace(m.Style) == "" {
		m.Style = DefaultStyle
	}
	if strings.TrimSpace(m.MarketPosition) == "" {
		m.MarketPosition = DefaultMarketPosition
	}
	m.PainPoints = nonNil(m.PainPoints)
	m.Desires = nonNil(m.Desires)
	m.MarketGaps = nonNil(m.MarketGaps)
	return m
}

// ToMap 转为可持久化的 jsonb 对象
func (m *MarketResearch) ToMap() (map[string]any, error) {
	return toMap(m)
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

package book

import (
	"strings"
	"time"

	"z-book-ai-api/internal/application/book/extract"
	"z-book-ai-api/internal/application/book/policy"
	"z-book-ai-api/internal/config"
)

// StageProfile 单个阶段的模型参数
type StageProfile struct {
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Settings 流水线参数
type Settings struct {
	Research     StageProfile
	Structure    StageProfile
	UnitResearch StageProfile
	// UnitWrite 的温度与上限由 Policy 决定，这里只用提供商和模型
	UnitWrite StageProfile
	Revision  StageProfile

	UnitResearchEnabled bool
	Policy              policy.Policy

	TargetChapterCount int
	TargetWordsMin     int
	TargetWordsMax     int

	// Reconstruct 启发式重建参数，DefaultLength 同时作为单元缺省篇幅
	Reconstruct extract.ReconstructOptions

	ResearchCacheTTL time.Duration
}

// DefaultSettings 默认参数
func DefaultSettings() Settings {
	return Settings{
		Research:            StageProfile{Temperature: 0.7, MaxTokens: 4000},
		Structure:           StageProfile{Temperature: 0.7, MaxTokens: 16000},
		UnitResearch:        StageProfile{Temperature: 0.3, MaxTokens: 2000},
		Revision:            StageProfile{Temperature: 0.7, MaxTokens: policy.DefaultTokenHardCap},
		UnitResearchEnabled: true,
		Policy:              policy.Default(),
		TargetChapterCount:  30,
		TargetWordsMin:      60000,
		TargetWordsMax:      120000,
		Reconstruct:         extract.DefaultReconstructOptions(),
		ResearchCacheTTL:    24 * time.Hour,
	}
}

// SettingsFromConfig 由配置构建参数，阶段未指定提供商时使用 llm.default_provider
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}
	p := cfg.Pipeline
	fallback := strings.TrimSpace(cfg.LLM.DefaultProvider)

	s.Research = profileFrom(p.Research, fallback, s.Research)
	s.Structure = profileFrom(p.Structure, fallback, s.Structure)
	s.UnitResearch = profileFrom(p.UnitResearch, fallback, s.UnitResearch)
	s.UnitWrite = profileFrom(p.UnitWrite, fallback, s.UnitWrite)
	s.Revision = profileFrom(p.Revision, fallback, s.Revision)

	s.UnitResearchEnabled = p.UnitResearchEnabled
	s.Policy = policy.Policy{TokenMultiplier: p.TokenMultiplier, TokenHardCap: p.TokenHardCap}

	if p.TargetChapterCount > 0 {
		s.TargetChapterCount = p.TargetChapterCount
	}
	if p.TargetWordsMin > 0 {
		s.TargetWordsMin = p.TargetWordsMin
	}
	if p.TargetWordsMax > 0 {
		s.TargetWordsMax = p.TargetWordsMax
	}
	s.Reconstruct = extract.ReconstructOptions{
		MinChapters:     p.MinChapters,
		ChaptersPerPart: p.ChaptersPerSyntheticPart,
		DefaultLength:   p.DefaultEstimatedLength,
	}.WithDefaults()
	if p.ResearchCacheTTL > 0 {
		s.ResearchCacheTTL = p.ResearchCacheTTL
	}
	return s
}

func profileFrom(sc config.StageConfig, fallbackProvider string, def StageProfile) StageProfile {
	out := def
	out.Provider = strings.TrimSpace(sc.Provider)
	if out.Provider == "" {
		out.Provider = fallbackProvider
	}
	out.Model = strings.TrimSpace(sc.Model)
	if sc.Temperature > 0 {
		out.Temperature = float32(sc.Temperature)
	}
	if sc.MaxTokens > 0 {
		out.MaxTokens = sc.MaxTokens
	}
	return out
}

// defaultLength 单元缺省篇幅
func (s Settings) defaultLength() int {
	return s.Reconstruct.WithDefaults().DefaultLength
}

package service

import (
	"context"
	"sync"
)

// LLMUsageInput 一次 LLM 调用的用量
type LLMUsageInput struct {
	BookID string

	Workflow string
	Provider string
	Model    string

	PromptTokens     int
	CompletionTokens int
	DurationMs       int
}

// LLMUsageRecorder 记录 LLM 用量，实现不应阻塞主流程
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput) error
}

type usageRecorderKey struct{}

// WithUsageRecorder 将用量记录器绑定到 context
func WithUsageRecorder(ctx context.Context, r LLMUsageRecorder) context.Context {
	if r == nil {
		return ctx
	}
	return context.WithValue(ctx, usageRecorderKey{}, r)
}

// UsageRecorderFromContext 取出绑定的用量记录器，没有时返回 nil
func UsageRecorderFromContext(ctx context.Context) LLMUsageRecorder {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(usageRecorderKey{}).(LLMUsageRecorder)
	return r
}

// UsageMeter 在单个任务范围内累加 token 用量
type UsageMeter struct {
	mu               sync.Mutex
	calls            int
	promptTokens     int
	completionTokens int
	provider         string
	model            string
}

// NewUsageMeter 创建用量计数器
func NewUsageMeter() *UsageMeter {
	return &UsageMeter{}
}

// Record 实现 LLMUsageRecorder
func (m *UsageMeter) Record(_ context.Context, in LLMUsageInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.promptTokens += in.PromptTokens
	m.completionTokens += in.CompletionTokens
	if in.Provider != "" && in.Provider != unknown {
		m.provider = in.Provider
	}
	if in.Model != "" {
		m.model = in.Model
	}
	return nil
}

// UsageTotals 累计用量快照
type UsageTotals struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	Provider         string
	Model            string
}

// Totals 返回当前累计值
func (m *UsageMeter) Totals() UsageTotals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return UsageTotals{
		Calls:            m.calls,
		PromptTokens:     m.promptTokens,
		CompletionTokens: m.completionTokens,
		Provider:         m.provider,
		Model:            m.model,
	}
}

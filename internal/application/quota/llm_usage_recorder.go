package quota

import (
	"context"
	"fmt"
	"strings"

	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	"z-book-ai-api/internal/domain/service"
)

// LLMUsageRecorder 把每次 LLM 调用写成一条用量流水
type LLMUsageRecorder struct {
	usageRepo repository.LLMUsageEventRepository
	jobID     string
}

var _ service.LLMUsageRecorder = (*LLMUsageRecorder)(nil)

// NewLLMUsageRecorder jobID 为空表示调用不属于任何任务
func NewLLMUsageRecorder(usageRepo repository.LLMUsageEventRepository, jobID string) *LLMUsageRecorder {
	return &LLMUsageRecorder{usageRepo: usageRepo, jobID: jobID}
}

func (r *LLMUsageRecorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.usageRepo == nil {
		return nil
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		return fmt.Errorf("invalid token usage")
	}

	return r.usageRepo.Create(ctx, &entity.LLMUsageEvent{
		BookID:           strings.TrimSpace(in.BookID),
		JobID:            r.jobID,
		Provider:         strings.TrimSpace(in.Provider),
		Model:            strings.TrimSpace(in.Model),
		Workflow:         strings.TrimSpace(in.Workflow),
		TokensPrompt:     in.PromptTokens,
		TokensCompletion: in.CompletionTokens,
		DurationMs:       in.DurationMs,
	})
}

// Tee 把同一份用量分发给多个记录器，返回第一个错误
type Tee []service.LLMUsageRecorder

func (t Tee) Record(ctx context.Context, in service.LLMUsageInput) error {
	var first error
	for _, r := range t {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, in); err != nil && first == nil {
			first = err
		}
	}
	return first
}

package port

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// GenerationRequest 一次文本生成请求
type GenerationRequest struct {
	// Workflow 调用所属阶段，用于观测
	Workflow string
	Provider string
	Model    string

	Messages    []*schema.Message
	Temperature float32
	MaxTokens   int

	// JSONMode 要求模型输出 JSON 对象，提供商不支持时自动降级
	JSONMode bool
}

// GenerationUsage token 用量
type GenerationUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// GenerationResult 生成结果
type GenerationResult struct {
	Text  string
	Usage GenerationUsage
	Model string
}

// GenerationService 外部文本生成能力，任何错误都视为本次调用失败
type GenerationService interface {
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

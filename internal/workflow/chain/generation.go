// Package chain 用 Eino compose 编排 LLM 调用
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "z-book-ai-api/internal/domain/service"
	workflowport "z-book-ai-api/internal/workflow/port"
	"z-book-ai-api/pkg/logger"
)

// GenerationChain 通用文本生成链，实现 port.GenerationService
type GenerationChain struct {
	factory  workflowport.ChatModelFactory
	throttle workflowport.CallThrottle

	chainOnce sync.Once
	chain     compose.Runnable[*workflowport.GenerationRequest, *workflowport.GenerationResult]
	chainErr  error
}

var _ workflowport.GenerationService = (*GenerationChain)(nil)

// Option GenerationChain 配置项
type Option func(*GenerationChain)

// WithThrottle 每次模型调用前先取得提供商配额
func WithThrottle(t workflowport.CallThrottle) Option {
	return func(c *GenerationChain) {
		c.throttle = t
	}
}

func NewGenerationChain(factory workflowport.ChatModelFactory, opts ...Option) *GenerationChain {
	c := &GenerationChain{factory: factory}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate 执行一次生成
func (c *GenerationChain) Generate(ctx context.Context, req *workflowport.GenerationRequest) (*workflowport.GenerationResult, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	ctx = llmctx.WithWorkflowProvider(ctx, req.Workflow, strings.TrimSpace(req.Provider))
	return chain.Invoke(ctx, req)
}

type generationChainState struct {
	Req    *workflowport.GenerationRequest
	OutMsg *schema.Message
}

func (c *GenerationChain) getChain() (compose.Runnable[*workflowport.GenerationRequest, *workflowport.GenerationResult], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *GenerationChain) buildChain(ctx context.Context) (compose.Runnable[*workflowport.GenerationRequest, *workflowport.GenerationResult], error) {
	chain := compose.NewChain[*workflowport.GenerationRequest, *workflowport.GenerationResult]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, req *workflowport.GenerationRequest) (*generationChainState, error) {
			if req == nil {
				return nil, fmt.Errorf("request is nil")
			}
			if len(req.Messages) == 0 {
				return nil, fmt.Errorf("messages are required")
			}
			if req.MaxTokens < 0 {
				return nil, fmt.Errorf("max_tokens must not be negative")
			}
			return &generationChainState{Req: req}, nil
		}),
		compose.WithNodeName("generation.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generationChainState) (*generationChainState, error) {
			if st == nil || st.Req == nil {
				return nil, fmt.Errorf("state is nil")
			}
			provider := strings.TrimSpace(st.Req.Provider)
			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}
			if c.throttle != nil {
				if err := c.throttle.Wait(ctx, provider); err != nil {
					return nil, err
				}
			}

			outMsg, err := chatModel.Generate(ctx, st.Req.Messages, buildModelOptions(st.Req, st.Req.JSONMode)...)
			if err != nil && st.Req.JSONMode && IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json mode not supported, fallback to prompt-only",
					"provider", provider,
					"model", strings.TrimSpace(st.Req.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Req.Messages, buildModelOptions(st.Req, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("generation.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *generationChainState) (*workflowport.GenerationResult, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			res := &workflowport.GenerationResult{
				Text:  st.OutMsg.Content,
				Model: strings.TrimSpace(st.Req.Model),
			}
			if meta := st.OutMsg.ResponseMeta; meta != nil && meta.Usage != nil {
				res.Usage = workflowport.GenerationUsage{
					PromptTokens:     meta.Usage.PromptTokens,
					CompletionTokens: meta.Usage.CompletionTokens,
				}
			}
			return res, nil
		}),
		compose.WithNodeName("generation.finalize"),
	)

	return chain.Compile(ctx)
}

func buildModelOptions(req *workflowport.GenerationRequest, jsonMode bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if req == nil {
		return opts
	}
	opts = append(opts, model.WithTemperature(req.Temperature))
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if m := strings.TrimSpace(req.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	if jsonMode {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}))
	}
	return opts
}

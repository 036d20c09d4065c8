package llm

import (
	"context"
	"time"

	"z-book-ai-api/internal/config"
	workflowport "z-book-ai-api/internal/workflow/port"
)

// WindowLimiter 滑动窗口限流能力
type WindowLimiter interface {
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// ProviderThrottle 按 requests_per_minute 为每个提供商限流，多个 worker 共享配额
type ProviderThrottle struct {
	config  *config.LLMConfig
	limiter WindowLimiter
}

var _ workflowport.CallThrottle = (*ProviderThrottle)(nil)

// NewProviderThrottle 创建提供商限流器
func NewProviderThrottle(cfg *config.Config, limiter WindowLimiter) *ProviderThrottle {
	return &ProviderThrottle{config: &cfg.LLM, limiter: limiter}
}

// Wait 未配置配额的提供商直接放行
func (t *ProviderThrottle) Wait(ctx context.Context, provider string) error {
	if provider == "" {
		provider = t.config.DefaultProvider
	}
	p, ok := t.config.Providers[provider]
	if !ok || p.RequestsPerMinute <= 0 || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx, "llm:rpm:"+provider, p.RequestsPerMinute, time.Minute)
}

// Package service 定义跨层共享的领域服务契约
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
	llmCtxKeyBook     llmCtxKey = "llm_book"
)

const unknown = "unknown"

func withTrimmed(ctx context.Context, key llmCtxKey, value string) context.Context {
	if ctx == nil {
		return nil
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func trimmedFrom(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return strings.TrimSpace(s)
}

// WithWorkflow 标记当前 LLM 调用所属的流水线阶段
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return withTrimmed(ctx, llmCtxKeyWorkflow, workflow)
}

// WithProvider 标记当前 LLM 调用使用的提供商
func WithProvider(ctx context.Context, provider string) context.Context {
	return withTrimmed(ctx, llmCtxKeyProvider, provider)
}

// WithBook 标记当前 LLM 调用所属书籍
func WithBook(ctx context.Context, bookID string) context.Context {
	return withTrimmed(ctx, llmCtxKeyBook, bookID)
}

func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

func WorkflowFromContext(ctx context.Context) string {
	if s := trimmedFrom(ctx, llmCtxKeyWorkflow); s != "" {
		return s
	}
	return unknown
}

func ProviderFromContext(ctx context.Context) string {
	if s := trimmedFrom(ctx, llmCtxKeyProvider); s != "" {
		return s
	}
	return unknown
}

func BookFromContext(ctx context.Context) string {
	return trimmedFrom(ctx, llmCtxKeyBook)
}

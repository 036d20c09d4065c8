// Package eino 为全部 ChatModel 调用挂载指标、追踪与用量记录
package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	llmctx "z-book-ai-api/internal/domain/service"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
)

type startTimeKey struct{}

func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: onStart,
		OnEnd:   onEnd,
		OnError: onError,
	}
}

func onStart(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
	ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

	attrs := []attribute.KeyValue{
		attribute.String("eino.workflow", llmctx.WorkflowFromContext(ctx)),
		attribute.String("llm.provider", llmctx.ProviderFromContext(ctx)),
		attribute.String("llm.model", modelNameFromInput(input)),
	}
	if book := llmctx.BookFromContext(ctx); book != "" {
		attrs = append(attrs, attribute.String("book.id", book))
	}
	if info != nil {
		attrs = append(attrs,
			attribute.String("eino.node_name", info.Name),
			attribute.String("eino.type", info.Type),
		)
	}

	ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	return ctx
}

func onEnd(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
	workflow := llmctx.WorkflowFromContext(ctx)
	provider := llmctx.ProviderFromContext(ctx)
	modelName := modelNameFromOutput(output)
	elapsed := elapsedSeconds(ctx)

	metrics.LLMCallTotal.WithLabelValues(workflow, provider, modelName, "success").Inc()
	if elapsed > 0 {
		metrics.LLMCallDuration.WithLabelValues(workflow, provider, modelName).Observe(elapsed)
	}

	span := trace.SpanFromContext(ctx)
	if output != nil && output.TokenUsage != nil {
		promptTokens := output.TokenUsage.PromptTokens
		completionTokens := output.TokenUsage.CompletionTokens

		metrics.LLMTokensUsed.WithLabelValues(workflow, provider, modelName, "prompt").Add(float64(promptTokens))
		metrics.LLMTokensUsed.WithLabelValues(workflow, provider, modelName, "completion").Add(float64(completionTokens))
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", promptTokens),
			attribute.Int("llm.completion_tokens", completionTokens),
		)

		if rec := llmctx.UsageRecorderFromContext(ctx); rec != nil {
			err := rec.Record(ctx, llmctx.LLMUsageInput{
				BookID:           llmctx.BookFromContext(ctx),
				Workflow:         workflow,
				Provider:         provider,
				Model:            modelName,
				PromptTokens:     promptTokens,
				CompletionTokens: completionTokens,
				DurationMs:       int(elapsed * 1000),
			})
			if err != nil {
				logger.Warn(ctx, "failed to record llm usage", "error", err.Error())
			}
		}
	}
	span.End()
	return ctx
}

func onError(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
	workflow := llmctx.WorkflowFromContext(ctx)
	provider := llmctx.ProviderFromContext(ctx)

	metrics.LLMCallTotal.WithLabelValues(workflow, provider, "", "error").Inc()
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(workflow, provider, "").Observe(d)
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
	return ctx
}

func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}

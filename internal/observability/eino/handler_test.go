package eino

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmctx "z-book-ai-api/internal/domain/service"
)

func TestChatModelCallbacks(t *testing.T) {
	t.Run("Should feed token usage to the bound recorder", func(t *testing.T) {
		meter := llmctx.NewUsageMeter()
		ctx := llmctx.WithUsageRecorder(context.Background(), meter)
		ctx = llmctx.WithWorkflowProvider(ctx, "unit_write", "openai")
		ctx = llmctx.WithBook(ctx, "book-1")

		ctx = onStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "gpt-4o"}})
		onEnd(ctx, nil, &model.CallbackOutput{
			Config:     &model.Config{Model: "gpt-4o"},
			TokenUsage: &model.TokenUsage{PromptTokens: 100, CompletionTokens: 250},
		})

		totals := meter.Totals()
		assert.Equal(t, 1, totals.Calls)
		assert.Equal(t, 100, totals.PromptTokens)
		assert.Equal(t, 250, totals.CompletionTokens)
		assert.Equal(t, "openai", totals.Provider)
		assert.Equal(t, "gpt-4o", totals.Model)
	})

	t.Run("Should tolerate calls without a recorder or usage", func(t *testing.T) {
		ctx := onStart(context.Background(), nil, nil)
		assert.NotPanics(t, func() {
			onEnd(ctx, nil, &model.CallbackOutput{Message: schema.AssistantMessage("x", nil)})
			onError(onStart(context.Background(), nil, nil), nil, assert.AnError)
		})
	})

	t.Run("Should measure elapsed time from start", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), startTimeKey{}, time.Now().Add(-2*time.Second))
		require.GreaterOrEqual(t, elapsedSeconds(ctx), 2.0)
		assert.Zero(t, elapsedSeconds(context.Background()))
	})
}

package quota

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/service"
	apperrors "z-book-ai-api/pkg/errors"
)

type memUsageRepo struct {
	mu     sync.Mutex
	events []*entity.LLMUsageEvent
	err    error
}

func (m *memUsageRepo) Create(_ context.Context, e *entity.LLMUsageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memUsageRepo) SumTokensByBook(_ context.Context, bookID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, e := range m.events {
		if e.BookID == bookID {
			total += int64(e.TokensPrompt + e.TokensCompletion)
		}
	}
	return total, nil
}

func TestLLMUsageRecorder(t *testing.T) {
	t.Run("Should persist an event tagged with the job", func(t *testing.T) {
		repo := &memUsageRepo{}
		rec := NewLLMUsageRecorder(repo, "job-1")

		require.NoError(t, rec.Record(context.Background(), service.LLMUsageInput{
			BookID: " book-1 ", Workflow: "unit_write", Provider: "openai", Model: "gpt-4o",
			PromptTokens: 10, CompletionTokens: 20, DurationMs: 1500,
		}))
		require.Len(t, repo.events, 1)
		e := repo.events[0]
		assert.Equal(t, "book-1", e.BookID)
		assert.Equal(t, "job-1", e.JobID)
		assert.Equal(t, "unit_write", e.Workflow)
		assert.Equal(t, 1500, e.DurationMs)
	})

	t.Run("Should reject negative usage", func(t *testing.T) {
		err := NewLLMUsageRecorder(&memUsageRepo{}, "").Record(context.Background(), service.LLMUsageInput{PromptTokens: -1})
		assert.Error(t, err)
	})

	t.Run("Should fan out to every recorder and keep the first error", func(t *testing.T) {
		meter := service.NewUsageMeter()
		failing := NewLLMUsageRecorder(&memUsageRepo{err: errors.New("db down")}, "job-1")

		err := Tee{failing, meter, nil}.Record(context.Background(), service.LLMUsageInput{PromptTokens: 3, CompletionTokens: 4})
		require.Error(t, err)
		assert.Equal(t, 7, meter.Totals().PromptTokens+meter.Totals().CompletionTokens)
	})
}

func TestTokenBudgetChecker(t *testing.T) {
	repo := &memUsageRepo{events: []*entity.LLMUsageEvent{
		{BookID: "book-1", TokensPrompt: 600, TokensCompletion: 400},
		{BookID: "book-2", TokensPrompt: 5},
	}}

	t.Run("Should allow books under budget", func(t *testing.T) {
		used, err := NewTokenBudgetChecker(repo, 2000).Check(context.Background(), "book-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), used)
	})

	t.Run("Should refuse books at or over budget", func(t *testing.T) {
		_, err := NewTokenBudgetChecker(repo, 1000).Check(context.Background(), "book-1")
		var exceeded TokenBudgetExceededError
		require.ErrorAs(t, err, &exceeded)
		assert.Equal(t, int64(1000), exceeded.Used)
		assert.Equal(t, apperrors.CodeBudgetExceeded, apperrors.AsAppError(err).Code)
	})

	t.Run("Should skip the check without a budget", func(t *testing.T) {
		used, err := NewTokenBudgetChecker(repo, 0).Check(context.Background(), "book-1")
		require.NoError(t, err)
		assert.Zero(t, used)
	})
}

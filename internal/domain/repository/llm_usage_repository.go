package repository

import (
	"context"

	"z-book-ai-api/internal/domain/entity"
)

type LLMUsageEventRepository interface {
	Create(ctx context.Context, event *entity.LLMUsageEvent) error
	// SumTokensByBook 书籍累计 token（prompt + completion）
	SumTokensByBook(ctx context.Context, bookID string) (int64, error)
}

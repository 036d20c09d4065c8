package postgres

import (
	"context"
	"fmt"

	"z-book-ai-api/internal/domain/entity"
)

// AutoMigrate 建表或补齐列与索引
func (c *Client) AutoMigrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.AutoMigrate")
	defer span.End()

	if err := c.db.WithContext(ctx).AutoMigrate(
		&entity.Book{},
		&entity.Unit{},
		&entity.GenerationJob{},
		&entity.LLMUsageEvent{},
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

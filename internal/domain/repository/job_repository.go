package repository

import (
	"context"

	"z-book-ai-api/internal/domain/entity"
)

// JobRepository 生成任务仓储接口
type JobRepository interface {
	// Create 创建任务
	Create(ctx context.Context, job *entity.GenerationJob) error

	// GetByID 根据 ID 获取任务
	GetByID(ctx context.Context, id string) (*entity.GenerationJob, error)

	// Update 更新任务
	Update(ctx context.Context, job *entity.GenerationJob) error

	// ListByBook 按创建时间倒序列出书籍任务
	ListByBook(ctx context.Context, bookID string, q JobQuery) (*Page[*entity.GenerationJob], error)
}

package repository

import (
	"context"

	"z-book-ai-api/internal/domain/entity"
)

// UnitListOptions 单元列表过滤条件
type UnitListOptions struct {
	// Before 仅返回 ordinal 小于该值的单元，nil 表示不过滤
	Before *int
	Status entity.UnitStatus
}

// UnitRepository 单元仓储接口
type UnitRepository interface {
	// Get 根据 ID 获取单元，不存在时返回 nil, nil
	Get(ctx context.Context, id string) (*entity.Unit, error)

	// ListByBook 按 ordinal 升序列出书籍单元
	ListByBook(ctx context.Context, bookID string, opts UnitListOptions) ([]*entity.Unit, error)

	// Write 写回正文、字数、状态与生成元数据
	Write(ctx context.Context, id string, write entity.UnitWrite) error

	// ReplaceForBook 删除书籍已有单元并批量登记新单元
	ReplaceForBook(ctx context.Context, bookID string, units []*entity.Unit) error
}

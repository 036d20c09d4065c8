// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-book-ai-api/internal/domain/entity"
)

// BookRepository 书籍（文档）仓储接口
type BookRepository interface {
	// Create 创建书籍
	Create(ctx context.Context, book *entity.Book) error

	// Get 根据 ID 获取书籍，不存在时返回 nil, nil
	Get(ctx context.Context, id string) (*entity.Book, error)

	// UpdateMarketResearch 写入市场调研结果及其派生字段
	UpdateMarketResearch(ctx context.Context, id string, research map[string]any, profile BookProfile) error

	// UpdateStructure 写入目录结构
	UpdateStructure(ctx context.Context, id string, structure map[string]any, title, subtitle string) error

	// UpdateReferenceList 整体覆盖参考文献列表
	UpdateReferenceList(ctx context.Context, id string, list []string) error

	// UpdateStatus 更新书籍状态
	UpdateStatus(ctx context.Context, id string, status entity.BookStatus) error
}

// BookProfile 调研阶段确定的写作画像
type BookProfile struct {
	TargetAudience string
	Tone           string
	Style          string
	MarketPosition string
}

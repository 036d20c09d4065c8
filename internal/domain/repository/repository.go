// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-book-ai-api/internal/domain/entity"
)

// TxKey 事务上下文键，值为当前事务
type TxKey struct{}

// Transactor 在同一事务中执行 fn，fn 内的仓储调用从 ctx 取事务
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// JobQuery 书籍任务列表查询，Status/Type 为空表示不过滤
type JobQuery struct {
	Status   entity.JobStatus
	Type     entity.JobType
	Page     int
	PageSize int
}

// Normalized 页码从 1 开始，页大小落在 [1, 100]
func (q JobQuery) Normalized() JobQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

func (q JobQuery) Offset() int {
	q = q.Normalized()
	return (q.Page - 1) * q.PageSize
}

func (q JobQuery) Limit() int {
	return q.Normalized().PageSize
}

// Matches 内存实现与测试按同一规则过滤
func (q JobQuery) Matches(job *entity.GenerationJob) bool {
	if job == nil {
		return false
	}
	if q.Status != "" && job.Status != q.Status {
		return false
	}
	return q.Type == "" || job.JobType == q.Type
}

// Page 一页结果
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// NewPage 按规范化后的查询记录页码
func NewPage[T any](items []T, total int64, q JobQuery) *Page[T] {
	q = q.Normalized()
	return &Page[T]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}
}

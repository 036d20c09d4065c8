package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	apperrors "z-book-ai-api/pkg/errors"
)

// UnitRepository 单元仓储实现
type UnitRepository struct {
	client *Client
}

var _ repository.UnitRepository = (*UnitRepository)(nil)

// NewUnitRepository 创建单元仓储
func NewUnitRepository(client *Client) *UnitRepository {
	return &UnitRepository{client: client}
}

// Get 根据 ID 获取单元
func (r *UnitRepository) Get(ctx context.Context, id string) (*entity.Unit, error) {
	ctx, span := tracer.Start(ctx, "postgres.UnitRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var unit entity.Unit
	if err := db.First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return &unit, nil
}

// ListByBook 按 ordinal 升序列出单元
func (r *UnitRepository) ListByBook(ctx context.Context, bookID string, opts repository.UnitListOptions) ([]*entity.Unit, error) {
	ctx, span := tracer.Start(ctx, "postgres.UnitRepository.ListByBook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Where("book_id = ?", bookID)
	if opts.Before != nil {
		query = query.Where("ordinal < ?", *opts.Before)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var units []*entity.Unit
	if err := query.Order("ordinal ASC").Find(&units).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}

// Write 写回正文并递增版本号
func (r *UnitRepository) Write(ctx context.Context, id string, write entity.UnitWrite) error {
	ctx, span := tracer.Start(ctx, "postgres.UnitRepository.Write")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Unit{}).Where("id = ?", id).
		Select("content", "word_count", "status", "generation_metadata").
		Updates(&entity.Unit{
			Content:            write.Content,
			WordCount:          write.WordCount,
			Status:             write.Status,
			GenerationMetadata: write.Metadata,
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to write unit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeUnitNotFound, "unit not found").WithDetail(id)
	}

	if err := db.Model(&entity.Unit{}).Where("id = ?", id).
		UpdateColumn("version", gorm.Expr("version + 1")).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to bump unit version: %w", err)
	}
	return nil
}

// ReplaceForBook 删除旧单元后批量创建
func (r *UnitRepository) ReplaceForBook(ctx context.Context, bookID string, units []*entity.Unit) error {
	ctx, span := tracer.Start(ctx, "postgres.UnitRepository.ReplaceForBook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("book_id = ?", bookID).Delete(&entity.Unit{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete units: %w", err)
	}
	if len(units) == 0 {
		return nil
	}
	for _, u := range units {
		u.BookID = bookID
	}
	if err := db.CreateInBatches(units, 100).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create units: %w", err)
	}
	return nil
}

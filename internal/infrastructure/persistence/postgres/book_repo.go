package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	apperrors "z-book-ai-api/pkg/errors"
)

// BookRepository 书籍仓储实现
type BookRepository struct {
	client *Client
}

var _ repository.BookRepository = (*BookRepository)(nil)

// NewBookRepository 创建书籍仓储
func NewBookRepository(client *Client) *BookRepository {
	return &BookRepository{client: client}
}

// Create 创建书籍
func (r *BookRepository) Create(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Create")
	defer span.End()

	if book.ReferenceList == nil {
		book.ReferenceList = pq.StringArray{}
	}
	db := getDB(ctx, r.client.db)
	if err := db.Create(book).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// Get 根据 ID 获取书籍
func (r *BookRepository) Get(ctx context.Context, id string) (*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var book entity.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// UpdateMarketResearch 写入调研结果
func (r *BookRepository) UpdateMarketResearch(ctx context.Context, id string, research map[string]any, profile repository.BookProfile) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.UpdateMarketResearch")
	defer span.End()

	// jsonb 列走结构体更新，序列化器才会生效
	return r.updates(ctx, id,
		[]string{"market_research", "target_audience", "tone", "style", "market_position", "status"},
		&entity.Book{
			MarketResearch: research,
			TargetAudience: profile.TargetAudience,
			Tone:           profile.Tone,
			Style:          profile.Style,
			MarketPosition: profile.MarketPosition,
			Status:         entity.BookStatusResearched,
		},
		span.RecordError,
	)
}

// UpdateStructure 写入目录结构
func (r *BookRepository) UpdateStructure(ctx context.Context, id string, structure map[string]any, title, subtitle string) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.UpdateStructure")
	defer span.End()

	return r.updates(ctx, id,
		[]string{"structure", "title", "subtitle"},
		&entity.Book{Structure: structure, Title: title, Subtitle: subtitle},
		span.RecordError,
	)
}

// UpdateReferenceList 覆盖参考文献列表
func (r *BookRepository) UpdateReferenceList(ctx context.Context, id string, list []string) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.UpdateReferenceList")
	defer span.End()

	if list == nil {
		list = []string{}
	}
	return r.updates(ctx, id,
		[]string{"reference_list"},
		&entity.Book{ReferenceList: pq.StringArray(list)},
		span.RecordError,
	)
}

// UpdateStatus 更新书籍状态
func (r *BookRepository) UpdateStatus(ctx context.Context, id string, status entity.BookStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.UpdateStatus")
	defer span.End()

	return r.updates(ctx, id, []string{"status"}, &entity.Book{Status: status}, span.RecordError)
}

func (r *BookRepository) updates(ctx context.Context, id string, columns []string, values *entity.Book, record func(error, ...trace.EventOption)) error {
	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Book{}).Where("id = ?", id).Select(columns).Updates(values)
	if res.Error != nil {
		record(res.Error)
		return fmt.Errorf("failed to update book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeBookNotFound, "book not found").WithDetail(id)
	}
	return nil
}

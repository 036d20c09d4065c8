package book

import (
	"context"

	"github.com/lib/pq"

	"z-book-ai-api/internal/application/book/model"
	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	llmctx "z-book-ai-api/internal/domain/service"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// PlanResult 规划结果
type PlanResult struct {
	BookID    string
	Research  *model.MarketResearch
	Structure *model.BookStructure
	Units     []*entity.Unit
}

// PlanBook 对已登记的书籍依次执行调研与结构阶段，并把每个章节登记为空单元
func (o *Orchestrator) PlanBook(ctx context.Context, bookID string) (*PlanResult, error) {
	var out *PlanResult
	err := o.runStage(ctx, StageBookPlanning, func(ctx context.Context) error {
		book, err := o.books.Get(ctx, bookID)
		if err != nil {
			return err
		}
		if book == nil {
			return apperrors.New(apperrors.CodeBookNotFound, "book not found").WithDetail(bookID)
		}
		ctx = logger.WithBook(ctx, book.ID, "")
		ctx = llmctx.WithBook(ctx, book.ID)
		refs := []string(book.References)

		research, err := o.RunMarketResearch(ctx, book.Topic, refs)
		if err != nil {
			return err
		}
		researchMap, err := research.ToMap()
		if err != nil {
			return err
		}
		if err := o.books.UpdateMarketResearch(ctx, book.ID, researchMap, repository.BookProfile{
			TargetAudience: research.TargetAudience,
			Tone:           research.Tone,
			Style:          research.Style,
			MarketPosition: research.MarketPosition,
		}); err != nil {
			return err
		}

		structure, err := o.RunStructureGeneration(ctx, book.Topic, research, refs)
		if err != nil {
			return err
		}
		structureMap, err := structure.ToMap()
		if err != nil {
			return err
		}
		units := UnitsFromStructure(book.ID, structure)

		// 结构与单元一起落库，失败时不留下半成品
		err = o.withTx(ctx, func(ctx context.Context) error {
			if err := o.books.UpdateStructure(ctx, book.ID, structureMap, structure.Title, structure.Subtitle); err != nil {
				return err
			}
			if err := o.units.ReplaceForBook(ctx, book.ID, units); err != nil {
				return err
			}
			return o.books.UpdateStatus(ctx, book.ID, entity.BookStatusPlanned)
		})
		if err != nil {
			return err
		}

		logger.Info(ctx, "book planned",
			"parts", len(structure.Parts),
			"units", len(units),
		)
		out = &PlanResult{BookID: book.ID, Research: research, Structure: structure, Units: units}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UnitsFromStructure 章节号即单元 ordinal
func UnitsFromStructure(bookID string, s *model.BookStructure) []*entity.Unit {
	if s == nil {
		return nil
	}
	units := make([]*entity.Unit, 0, s.ChapterCount())
	for _, p := range s.Parts {
		for _, ch := range p.Chapters {
			u := entity.NewUnit(bookID, p.PartNumber, ch.ChapterNumber, ch.Title)
			u.Description = ch.Description
			u.EstimatedLength = ch.EstimatedLength
			u.KeyTopics = pq.StringArray(ch.KeyTopics)
			u.KeyPoints = pq.StringArray(ch.KeyPoints)
			units = append(units, u)
		}
	}
	return units
}

// GenerateAll 按 ordinal 顺序生成全部空单元；遇到第一个失败即停止，已生成的单元保留
func (o *Orchestrator) GenerateAll(ctx context.Context, bookID string) ([]*UnitResult, error) {
	book, err := o.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.New(apperrors.CodeBookNotFound, "book not found").WithDetail(bookID)
	}

	pending, err := o.units.ListByBook(ctx, bookID, repository.UnitListOptions{Status: entity.UnitStatusEmpty})
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	if err := o.books.UpdateStatus(ctx, bookID, entity.BookStatusWriting); err != nil {
		return nil, err
	}

	results := make([]*UnitResult, 0, len(pending))
	for _, u := range pending {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := o.RunUnitGeneration(ctx, u.ID)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

package book

import (
	"context"
	"strconv"
	"strings"
	"time"

	"z-book-ai-api/internal/application/book/model"
	"z-book-ai-api/internal/application/book/policy"
	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	llmctx "z-book-ai-api/internal/domain/service"
	workflowprompt "z-book-ai-api/internal/workflow/prompt"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
)

// UnitResult 单元生成或修订的结果
type UnitResult struct {
	UnitID     string
	BookID     string
	Ordinal    int
	Title      string
	Content    string
	WordCount  int
	Status     entity.UnitStatus
	References []string
	Meta       entity.GenerationMetadata
}

type priorUnit struct {
	Ordinal int
	Title   string
}

// unitContext 单元写作所需的元数据
type unitContext struct {
	Title           string
	Description     string
	KeyTopics       []string
	KeyPoints       []string
	EstimatedLength int
}

// RunUnitGeneration 生成单个单元正文：上下文组装 → 可选资料补充 → 主生成 → 字数/引用/落库
func (o *Orchestrator) RunUnitGeneration(ctx context.Context, unitID string) (*UnitResult, error) {
	var out *UnitResult
	err := o.runStage(ctx, StageUnitGeneration, func(ctx context.Context) error {
		unit, book, err := o.loadUnit(ctx, unitID)
		if err != nil {
			return err
		}
		ctx = logger.WithBook(ctx, book.ID, unit.ID)
		ctx = llmctx.WithBook(ctx, book.ID)

		uc := o.unitContext(ctx, book, unit)
		prior, err := o.priorUnits(ctx, book.ID, unit.Ordinal)
		if err != nil {
			return err
		}

		var research string
		if o.settings.UnitResearchEnabled {
			research, err = o.unitResearch(ctx, book, uc)
			if err != nil {
				return err
			}
		}

		profile := o.settings.UnitWrite
		profile.Temperature = o.settings.Policy.TemperatureFor(book.Tone)
		profile.MaxTokens = o.settings.Policy.TokenCeiling(uc.EstimatedLength)

		res, err := o.call(ctx, StageUnitGeneration, workflowUnitWrite, profile,
			workflowprompt.PromptUnitWriteV1,
			map[string]any{
				"tone":               orDefault(book.Tone, model.DefaultTone),
				"style":              orDefault(book.Style, model.DefaultStyle),
				"target_audience":    orDefault(book.TargetAudience, model.DefaultTargetAudience),
				"estimated_length":   uc.EstimatedLength,
				"book_title":         bookTitle(book),
				"market_position":    orDefault(book.MarketPosition, model.DefaultMarketPosition),
				"unit_ordinal":       unit.Ordinal,
				"unit_title":         uc.Title,
				"unit_description":   uc.Description,
				"key_topics":         inlineList(uc.KeyTopics),
				"key_points":         inlineList(uc.KeyPoints),
				"prior_titles_block": priorTitlesBlock(prior),
				"research_block":     researchBlock(research),
			},
			false,
		)
		if err != nil {
			return err
		}

		content := strings.TrimSpace(res.Text)
		words := policy.WordCount(content)
		refs, err := o.refs.Apply(ctx, book.ID, content)
		if err != nil {
			return err
		}

		meta := entity.GenerationMetadata{
			Model:            firstNonBlank(res.Model, profile.Model),
			Provider:         profile.Provider,
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			Temperature:      float64(profile.Temperature),
			MaxTokens:        profile.MaxTokens,
			Researched:       research != "",
			GeneratedAt:      o.now().UTC().Format(time.RFC3339),
		}
		if err := o.units.Write(ctx, unit.ID, entity.UnitWrite{
			Content:   content,
			WordCount: words,
			Status:    entity.UnitStatusInProgress,
			Metadata:  &meta,
		}); err != nil {
			return err
		}
		metrics.UnitWordCount.Observe(float64(words))

		out = &UnitResult{
			UnitID:     unit.ID,
			BookID:     book.ID,
			Ordinal:    unit.Ordinal,
			Title:      uc.Title,
			Content:    content,
			WordCount:  words,
			Status:     entity.UnitStatusInProgress,
			References: refs,
			Meta:       meta,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// unitResearch 资料补充：低温度取回带出处的事实材料，作为不透明文本交给主生成
func (o *Orchestrator) unitResearch(ctx context.Context, book *entity.Book, uc unitContext) (string, error) {
	var text string
	err := o.runStage(ctx, StageUnitResearch, func(ctx context.Context) error {
		res, err := o.call(ctx, StageUnitResearch, workflowUnitResearch, o.settings.UnitResearch,
			workflowprompt.PromptUnitResearchV1,
			map[string]any{
				"book_title":       bookTitle(book),
				"unit_title":       uc.Title,
				"unit_description": uc.Description,
				"key_topics":       inlineList(uc.KeyTopics),
				"key_points":       inlineList(uc.KeyPoints),
			},
			false,
		)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(res.Text)
		return nil
	})
	return text, err
}

// RunUnitRevision 按修订意见重写单元正文，状态保持不变
func (o *Orchestrator) RunUnitRevision(ctx context.Context, unitID, instructions string) (*UnitResult, error) {
	var out *UnitResult
	err := o.runStage(ctx, StageUnitRevision, func(ctx context.Context) error {
		instructions = strings.TrimSpace(instructions)
		if instructions == "" {
			return apperrors.New(apperrors.CodeInvalidParam, "revision instructions are required")
		}
		unit, book, err := o.loadUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(unit.Content) == "" {
			return apperrors.New(apperrors.CodeRevisionRejected, "unit has no content to revise")
		}
		ctx = logger.WithBook(ctx, book.ID, unit.ID)
		ctx = llmctx.WithBook(ctx, book.ID)

		profile := o.settings.Revision
		res, err := o.call(ctx, StageUnitRevision, workflowUnitRevise, profile,
			workflowprompt.PromptUnitReviseV1,
			map[string]any{
				"tone":            orDefault(book.Tone, model.DefaultTone),
				"style":           orDefault(book.Style, model.DefaultStyle),
				"book_title":      bookTitle(book),
				"unit_title":      unit.Title,
				"instructions":    instructions,
				"current_content": unit.Content,
			},
			false,
		)
		if err != nil {
			return err
		}

		content := strings.TrimSpace(res.Text)
		words := policy.WordCount(content)

		var meta entity.GenerationMetadata
		if unit.GenerationMetadata != nil {
			meta = *unit.GenerationMetadata
		}
		meta.Revised = true
		meta.Model = firstNonBlank(res.Model, profile.Model, meta.Model)
		meta.Provider = firstNonBlank(profile.Provider, meta.Provider)
		meta.PromptTokens = res.Usage.PromptTokens
		meta.CompletionTokens = res.Usage.CompletionTokens
		meta.GeneratedAt = o.now().UTC().Format(time.RFC3339)

		status := unit.Status
		if status == "" || status == entity.UnitStatusEmpty {
			status = entity.UnitStatusInProgress
		}
		if err := o.units.Write(ctx, unit.ID, entity.UnitWrite{
			Content:   content,
			WordCount: words,
			Status:    status,
			Metadata:  &meta,
		}); err != nil {
			return err
		}

		out = &UnitResult{
			UnitID:     unit.ID,
			BookID:     book.ID,
			Ordinal:    unit.Ordinal,
			Title:      unit.Title,
			Content:    content,
			WordCount:  words,
			Status:     status,
			References: []string(book.ReferenceList),
			Meta:       meta,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) loadUnit(ctx context.Context, unitID string) (*entity.Unit, *entity.Book, error) {
	unit, err := o.units.Get(ctx, unitID)
	if err != nil {
		return nil, nil, err
	}
	if unit == nil {
		return nil, nil, apperrors.New(apperrors.CodeUnitNotFound, "unit not found").WithDetail(unitID)
	}
	book, err := o.books.Get(ctx, unit.BookID)
	if err != nil {
		return nil, nil, err
	}
	if book == nil {
		return nil, nil, apperrors.New(apperrors.CodeBookNotFound, "book not found").WithDetail(unit.BookID)
	}
	return unit, book, nil
}

// unitContext 优先取目录结构中的章节元数据；结构中找不到时退回单元自身字段与默认值
func (o *Orchestrator) unitContext(ctx context.Context, book *entity.Book, unit *entity.Unit) unitContext {
	uc := unitContext{
		Title:           unit.Title,
		Description:     unit.Description,
		KeyTopics:       []string(unit.KeyTopics),
		KeyPoints:       []string(unit.KeyPoints),
		EstimatedLength: unit.EstimatedLength,
	}

	if book.HasStructure() {
		s, err := model.DecodeStructure(book.Structure, o.settings.defaultLength())
		if err == nil {
			if ch, _, ok := s.FindChapter(unit.Ordinal); ok {
				uc.Title = firstNonBlank(uc.Title, ch.Title)
				uc.Description = firstNonBlank(ch.Description, uc.Description)
				if len(ch.KeyTopics) > 0 {
					uc.KeyTopics = ch.KeyTopics
				}
				if len(ch.KeyPoints) > 0 {
					uc.KeyPoints = ch.KeyPoints
				}
				if ch.EstimatedLength > 0 {
					uc.EstimatedLength = ch.EstimatedLength
				}
			} else {
				logger.Warn(ctx, "unit missing from book structure, using stored metadata", "ordinal", unit.Ordinal)
			}
		} else {
			logger.Warn(ctx, "stored book structure unreadable, using stored metadata", "error", err.Error())
		}
	}

	if strings.TrimSpace(uc.Title) == "" {
		uc.Title = "Chapter " + strconv.Itoa(unit.Ordinal)
	}
	if strings.TrimSpace(uc.Description) == "" {
		uc.Description = model.DefaultChapterDescription
	}
	if uc.EstimatedLength <= 0 {
		uc.EstimatedLength = o.settings.defaultLength()
	}
	return uc
}

// priorUnits ordinal 小于当前单元的全部单元标题，不论状态
func (o *Orchestrator) priorUnits(ctx context.Context, bookID string, ordinal int) ([]priorUnit, error) {
	before := ordinal
	units, err := o.units.ListByBook(ctx, bookID, repository.UnitListOptions{Before: &before})
	if err != nil {
		return nil, err
	}
	out := make([]priorUnit, 0, len(units))
	for _, u := range units {
		if u == nil || u.Ordinal >= ordinal {
			continue
		}
		out = append(out, priorUnit{Ordinal: u.Ordinal, Title: u.Title})
	}
	return out, nil
}

func bookTitle(book *entity.Book) string {
	return firstNonBlank(book.Title, book.Topic)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

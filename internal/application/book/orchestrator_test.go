package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-book-ai-api/internal/application/book/model"
	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	workflowport "z-book-ai-api/internal/workflow/port"
	apperrors "z-book-ai-api/pkg/errors"
)

const researchJSON = `{"target_audience":"Busy professionals","pain_points":["overwhelm"],"desires":["calm"],"market_gaps":["no practical systems"],"tone":"Academic and rigorous","style":"Evidence based","market_position":"Research backed playbook"}`

func newTestOrchestrator(gen *fakeGen, books *memBooks, units *memUnits) *Orchestrator {
	return NewOrchestrator(gen, books, units, DefaultSettings(), WithClock(fixedClock))
}

func seededBook() (*entity.Book, *memUnits) {
	book := entity.NewBook("Time Management", []string{"Getting Things Done"})
	book.ID = "book-1"
	book.Title = "Mastering Time"
	book.Tone = "Academic and rigorous"

	u1 := entity.NewUnit(book.ID, 1, 1, "Intro")
	u2 := entity.NewUnit(book.ID, 1, 2, "Foundations")
	u3 := entity.NewUnit(book.ID, 1, 3, "Deep Work Blocks")
	u3.Description = "How to protect long focus blocks"
	u3.EstimatedLength = 4000
	u1.ID, u2.ID, u3.ID = "u1", "u2", "u3"
	return book, newMemUnits(u1, u2, u3)
}

func TestRunMarketResearch(t *testing.T) {
	ctx := context.Background()

	t.Run("Should extract fenced research object", func(t *testing.T) {
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) {
			return "Here is the report:\n```json\n" + researchJSON + "\n```", nil
		}}
		o := newTestOrchestrator(gen, newMemBooks(), newMemUnits())

		r, err := o.RunMarketResearch(ctx, "Time Management", []string{"Getting Things Done"})
		require.NoError(t, err)
		assert.Equal(t, "Busy professionals", r.TargetAudience)
		assert.Equal(t, []string{"overwhelm"}, r.PainPoints)

		reqs := gen.byWorkflow(workflowMarketResearch)
		require.Len(t, reqs, 1)
		assert.Equal(t, float32(0.7), reqs[0].Temperature)
		assert.Equal(t, 4000, reqs[0].MaxTokens)
		assert.True(t, reqs[0].JSONMode)
		assert.Contains(t, promptText(reqs[0]), "Time Management")
		assert.Contains(t, promptText(reqs[0]), "Getting Things Done")
	})

	t.Run("Should fill defaults when reply is prose", func(t *testing.T) {
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) {
			return "I think busy people would like this book.", nil
		}}
		o := newTestOrchestrator(gen, newMemBooks(), newMemUnits())

		r, err := o.RunMarketResearch(ctx, "Time Management", nil)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultTone, r.Tone)
		assert.Equal(t, model.DefaultTargetAudience, r.TargetAudience)
	})

	t.Run("Should tag generation failure with stage", func(t *testing.T) {
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) {
			return "", errors.New("quota exceeded")
		}}
		o := newTestOrchestrator(gen, newMemBooks(), newMemUnits())

		_, err := o.RunMarketResearch(ctx, "Time Management", nil)
		require.Error(t, err)
		assert.Equal(t, "market research failed: quota exceeded", err.Error())
		assert.Equal(t, StageMarketResearch, StageOf(err))
		assert.Equal(t, apperrors.CodeGenerationFailed, apperrors.AsAppError(err).Code)
	})

	t.Run("Should treat empty reply as failure", func(t *testing.T) {
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) { return "   ", nil }}
		o := newTestOrchestrator(gen, newMemBooks(), newMemUnits())

		_, err := o.RunMarketResearch(ctx, "Time Management", nil)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "market research failed: "))
	})
}

func TestRunStructureGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("Should synthesize main content part from prose outline", func(t *testing.T) {
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) {
			return "Sure, here is an outline.\n\nChapter 1: Getting Started\nWhy time slips away.\n\nChapter 2: Building Habits\n", nil
		}}
		o := newTestOrchestrator(gen, newMemBooks(), newMemUnits())

		s, err := o.RunStructureGeneration(ctx, "Time Management", nil, nil)
		require.NoError(t, err)

		var main []model.Part
		for _, p := range s.Parts {
			if p.Title == model.MainContentTitle {
				main = append(main, p)
			}
		}
		require.Len(t, main, 1)
		require.Len(t, main[0].Chapters, 2)
		assert.Equal(t, 1, main[0].Chapters[0].ChapterNumber)
		assert.Equal(t, "Getting Started", main[0].Chapters[0].Title)
		assert.Equal(t, 2, main[0].Chapters[1].ChapterNumber)
		assert.Equal(t, "Building Habits", main[0].Chapters[1].Title)
		assert.GreaterOrEqual(t, s.ChapterCount(), 30)
		require.NoError(t, s.Validate())
	})

	t.Run("Should embed research fields and constraints in prompt", func(t *testing.T) {
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) {
			return `{"title":"T","parts":[{"title":"ONE","chapters":[{"chapter_number":1,"title":"A"}]}]}`, nil
		}}
		o := newTestOrchestrator(gen, newMemBooks(), newMemUnits())
		research := &model.MarketResearch{TargetAudience: "Students", PainPoints: []string{"procrastination"}, Tone: "Friendly"}

		s, err := o.RunStructureGeneration(ctx, "Time Management", research, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, s.ChapterCount())
		assert.Equal(t, 3000, s.Parts[0].Chapters[0].EstimatedLength)

		reqs := gen.byWorkflow(workflowBookStructure)
		require.Len(t, reqs, 1)
		text := promptText(reqs[0])
		assert.Contains(t, text, "Students")
		assert.Contains(t, text, "procrastination")
		assert.Contains(t, text, "Friendly")
		assert.Contains(t, text, "About 30 chapters")
		assert.Contains(t, text, "between 60000 and 120000 words")
		assert.Equal(t, 16000, reqs[0].MaxTokens)
		assert.Equal(t, "", research.Style)
	})

	t.Run("Should not return partial structure on failure", func(t *testing.T) {
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) {
			return "", errors.New("timeout")
		}}
		o := newTestOrchestrator(gen, newMemBooks(), newMemUnits())

		s, err := o.RunStructureGeneration(ctx, "Time Management", nil, nil)
		assert.Nil(t, s)
		require.Error(t, err)
		assert.Equal(t, "structure generation failed: timeout", err.Error())
	})
}

func TestRunUnitGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("Should include prior titles and research in context", func(t *testing.T) {
		book, units := seededBook()
		books := newMemBooks(book)
		gen := &fakeGen{reply: func(req *workflowport.GenerationRequest) (string, error) {
			switch req.Workflow {
			case workflowUnitResearch:
				return "Focus blocks raise output by 20% (Jones, 2022).", nil
			default:
				return "Long focus wins (Smith, 2023). Data agrees (Jones, 2022). Again (Smith, 2023).", nil
			}
		}}
		o := newTestOrchestrator(gen, books, units)

		res, err := o.RunUnitGeneration(ctx, "u3")
		require.NoError(t, err)

		writes := gen.byWorkflow(workflowUnitWrite)
		require.Len(t, writes, 1)
		text := promptText(writes[0])
		assert.Contains(t, text, "Intro")
		assert.Contains(t, text, "Foundations")
		assert.Contains(t, text, "Focus blocks raise output by 20% (Jones, 2022).")
		assert.Contains(t, text, "How to protect long focus blocks")
		assert.Equal(t, float32(0.5), writes[0].Temperature)
		assert.Equal(t, 6000, writes[0].MaxTokens)

		research := gen.byWorkflow(workflowUnitResearch)
		require.Len(t, research, 1)
		assert.Equal(t, float32(0.3), research[0].Temperature)

		assert.Equal(t, []string{"Jones (2022)", "Smith (2023)"}, res.References)
		assert.Equal(t, 12, res.WordCount)
		assert.Equal(t, entity.UnitStatusInProgress, res.Status)
		assert.True(t, res.Meta.Researched)
		assert.Equal(t, "fake-model", res.Meta.Model)

		stored := units.get("u3")
		assert.Equal(t, entity.UnitStatusInProgress, stored.Status)
		assert.Equal(t, res.Content, stored.Content)
		assert.Equal(t, []string{"Jones (2022)", "Smith (2023)"}, []string(books.books["book-1"].ReferenceList))
	})

	t.Run("Should skip research pass when disabled", func(t *testing.T) {
		book, units := seededBook()
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) { return "Body text.", nil }}
		settings := DefaultSettings()
		settings.UnitResearchEnabled = false
		o := NewOrchestrator(gen, newMemBooks(book), units, settings)

		res, err := o.RunUnitGeneration(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, gen.byWorkflow(workflowUnitResearch))
		assert.False(t, res.Meta.Researched)
		assert.Contains(t, promptText(gen.byWorkflow(workflowUnitWrite)[0]), "This is the first chapter")
	})

	t.Run("Should abort with unit research tag", func(t *testing.T) {
		book, units := seededBook()
		gen := &fakeGen{reply: func(req *workflowport.GenerationRequest) (string, error) {
			if req.Workflow == workflowUnitResearch {
				return "", errors.New("search offline")
			}
			return "unused", nil
		}}
		o := newTestOrchestrator(gen, newMemBooks(book), units)

		_, err := o.RunUnitGeneration(ctx, "u3")
		require.Error(t, err)
		assert.Equal(t, "unit research failed: search offline", err.Error())
		assert.Empty(t, gen.byWorkflow(workflowUnitWrite))
		assert.Equal(t, 0, units.writes)
	})

	t.Run("Should tag primary generation failure", func(t *testing.T) {
		book, units := seededBook()
		gen := &fakeGen{reply: func(req *workflowport.GenerationRequest) (string, error) {
			if req.Workflow == workflowUnitWrite {
				return "", errors.New("model overloaded")
			}
			return "facts", nil
		}}
		o := newTestOrchestrator(gen, newMemBooks(book), units)

		_, err := o.RunUnitGeneration(ctx, "u3")
		require.Error(t, err)
		assert.Equal(t, "unit generation failed: model overloaded", err.Error())
		assert.Equal(t, entity.UnitStatusEmpty, units.get("u3").Status)
	})

	t.Run("Should fall back to defaults when unit missing from structure", func(t *testing.T) {
		book, units := seededBook()
		structure := &model.BookStructure{Title: "T", Parts: []model.Part{{
			PartNumber: 1, Title: "ONE",
			Chapters: []model.ChapterOutline{{ChapterNumber: 40, Title: "Elsewhere", EstimatedLength: 1000}},
		}}}
		m, err := structure.ToMap()
		require.NoError(t, err)
		book.Structure = m

		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) { return "Body.", nil }}
		settings := DefaultSettings()
		settings.UnitResearchEnabled = false
		o := NewOrchestrator(gen, newMemBooks(book), units, settings)

		_, err = o.RunUnitGeneration(ctx, "u2")
		require.NoError(t, err)
		req := gen.byWorkflow(workflowUnitWrite)[0]
		assert.Contains(t, promptText(req), model.DefaultChapterDescription)
		assert.Equal(t, 4500, req.MaxTokens)
	})

	t.Run("Should report missing unit", func(t *testing.T) {
		o := newTestOrchestrator(&fakeGen{}, newMemBooks(), newMemUnits())
		_, err := o.RunUnitGeneration(ctx, "nope")
		require.Error(t, err)
		assert.Equal(t, StageUnitGeneration, StageOf(err))
		assert.Equal(t, apperrors.CodeUnitNotFound, apperrors.AsAppError(err).Code)
	})
}

func TestRunUnitRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("Should overwrite content and keep status", func(t *testing.T) {
		book, units := seededBook()
		u := units.get("u1")
		u.Content = "old text here"
		u.Status = entity.UnitStatusInProgress

		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) {
			return "  brand new shorter text  ", nil
		}}
		o := newTestOrchestrator(gen, newMemBooks(book), units)

		res, err := o.RunUnitRevision(ctx, "u1", "Make it punchier")
		require.NoError(t, err)
		assert.Equal(t, "brand new shorter text", res.Content)
		assert.Equal(t, 4, res.WordCount)
		assert.Equal(t, entity.UnitStatusInProgress, res.Status)
		assert.True(t, res.Meta.Revised)

		req := gen.byWorkflow(workflowUnitRevise)[0]
		assert.Contains(t, promptText(req), "Make it punchier")
		assert.Contains(t, promptText(req), "old text here")
		assert.Empty(t, gen.byWorkflow(workflowUnitResearch))

		stored := units.get("u1")
		assert.Equal(t, "brand new shorter text", stored.Content)
		assert.Equal(t, entity.UnitStatusInProgress, stored.Status)
	})

	t.Run("Should reject unit without content", func(t *testing.T) {
		book, units := seededBook()
		o := newTestOrchestrator(&fakeGen{}, newMemBooks(book), units)

		_, err := o.RunUnitRevision(ctx, "u2", "anything")
		require.Error(t, err)
		assert.Equal(t, StageUnitRevision, StageOf(err))
		assert.Equal(t, apperrors.CodeRevisionRejected, apperrors.AsAppError(err).Code)
	})

	t.Run("Should tag revision failure", func(t *testing.T) {
		book, units := seededBook()
		units.get("u1").Content = "text"
		gen := &fakeGen{reply: func(*workflowport.GenerationRequest) (string, error) { return "", errors.New("boom") }}
		o := newTestOrchestrator(gen, newMemBooks(book), units)

		_, err := o.RunUnitRevision(ctx, "u1", "fix")
		require.Error(t, err)
		assert.Equal(t, "unit revision failed: boom", err.Error())
		assert.Equal(t, "text", units.get("u1").Content)
	})
}

func TestPlanBookAndGenerateAll(t *testing.T) {
	ctx := context.Background()

	structureJSON := `{"title":"Own Your Time","subtitle":"Systems that stick","parts":[` +
		`{"part_number":1,"title":"BASICS","chapters":[{"chapter_number":1,"title":"Intro","estimated_length":2000},{"chapter_number":2,"title":"Foundations"}]},` +
		`{"part_number":2,"title":"PRACTICE","chapters":[{"chapter_number":3,"title":"Blocks"}]}]}`

	newGen := func(failOn string) *fakeGen {
		return &fakeGen{reply: func(req *workflowport.GenerationRequest) (string, error) {
			switch req.Workflow {
			case workflowMarketResearch:
				return researchJSON, nil
			case workflowBookStructure:
				return structureJSON, nil
			case workflowUnitResearch:
				return "facts (Lee, 2021)", nil
			default:
				if failOn != "" && strings.Contains(promptText(req), failOn) {
					return "", fmt.Errorf("failed on %s", failOn)
				}
				return "Chapter body (Lee, 2021).", nil
			}
		}}
	}

	t.Run("Should persist research structure and units", func(t *testing.T) {
		book := entity.NewBook("Time Management", nil)
		book.ID = "book-9"
		books := newMemBooks(book)
		units := newMemUnits()
		o := newTestOrchestrator(newGen(""), books, units)

		plan, err := o.PlanBook(ctx, "book-9")
		require.NoError(t, err)
		require.Len(t, plan.Units, 3)

		stored := books.books["book-9"]
		assert.Equal(t, "Own Your Time", stored.Title)
		assert.Equal(t, "Academic and rigorous", stored.Tone)
		assert.Equal(t, entity.BookStatusPlanned, stored.Status)
		assert.True(t, stored.HasStructure())

		listed, err := units.ListByBook(ctx, "book-9", repository.UnitListOptions{})
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, 1, listed[0].Ordinal)
		assert.Equal(t, 2000, listed[0].EstimatedLength)
		assert.Equal(t, 2, listed[2].PartNumber)

		results, err := o.GenerateAll(ctx, "book-9")
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{results[0].Ordinal, results[1].Ordinal, results[2].Ordinal})
		assert.Equal(t, entity.BookStatusWriting, books.books["book-9"].Status)
		assert.Equal(t, []string{"Lee (2021)"}, []string(books.books["book-9"].ReferenceList))
	})

	t.Run("Should stop at first failed unit and keep earlier ones", func(t *testing.T) {
		book := entity.NewBook("Time Management", nil)
		book.ID = "book-10"
		books := newMemBooks(book)
		units := newMemUnits()
		o := newTestOrchestrator(newGen("Chapter 2: Foundations"), books, units)

		_, err := o.PlanBook(ctx, "book-10")
		require.NoError(t, err)

		results, err := o.GenerateAll(ctx, "book-10")
		require.Error(t, err)
		assert.Equal(t, "unit generation failed: failed on Chapter 2: Foundations", err.Error())
		require.Len(t, results, 1)

		all, err := units.ListByBook(ctx, "book-10", repository.UnitListOptions{})
		require.NoError(t, err)
		assert.Equal(t, entity.UnitStatusInProgress, all[0].Status)
		assert.Equal(t, entity.UnitStatusEmpty, all[1].Status)
		assert.Equal(t, entity.UnitStatusEmpty, all[2].Status)
	})

	t.Run("Should tag planning failure with failing stage", func(t *testing.T) {
		book := entity.NewBook("Time Management", nil)
		book.ID = "book-11"
		gen := &fakeGen{reply: func(req *workflowport.GenerationRequest) (string, error) {
			if req.Workflow == workflowBookStructure {
				return "", errors.New("rate limited")
			}
			return researchJSON, nil
		}}
		books := newMemBooks(book)
		units := newMemUnits()
		o := newTestOrchestrator(gen, books, units)

		_, err := o.PlanBook(ctx, "book-11")
		require.Error(t, err)
		assert.Equal(t, "structure generation failed: rate limited", err.Error())
		assert.False(t, books.books["book-11"].HasStructure())
		assert.Empty(t, units.units)
	})
}

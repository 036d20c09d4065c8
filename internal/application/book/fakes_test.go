package book

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	workflowport "z-book-ai-api/internal/workflow/port"
)

type fakeGen struct {
	mu    sync.Mutex
	reqs  []*workflowport.GenerationRequest
	reply func(req *workflowport.GenerationRequest) (string, error)
}

func (f *fakeGen) Generate(_ context.Context, req *workflowport.GenerationRequest) (*workflowport.GenerationResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	text, err := f.reply(req)
	if err != nil {
		return nil, err
	}
	return &workflowport.GenerationResult{
		Text:  text,
		Model: "fake-model",
		Usage: workflowport.GenerationUsage{PromptTokens: 11, CompletionTokens: 22},
	}, nil
}

func (f *fakeGen) byWorkflow(workflow string) []*workflowport.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*workflowport.GenerationRequest
	for _, r := range f.reqs {
		if r.Workflow == workflow {
			out = append(out, r)
		}
	}
	return out
}

func promptText(req *workflowport.GenerationRequest) string {
	var b strings.Builder
	for _, m := range req.Messages {
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

type memBooks struct {
	mu    sync.Mutex
	books map[string]*entity.Book
}

func newMemBooks(books ...*entity.Book) *memBooks {
	m := &memBooks{books: make(map[string]*entity.Book)}
	for _, b := range books {
		m.books[b.ID] = b
	}
	return m
}

func (m *memBooks) Create(_ context.Context, b *entity.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = fmt.Sprintf("book-%d", len(m.books)+1)
	}
	m.books[b.ID] = b
	return nil
}

func (m *memBooks) Get(_ context.Context, id string) (*entity.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, nil
	}
	c := *b
	c.ReferenceList = append(pq.StringArray(nil), b.ReferenceList...)
	return &c, nil
}

func (m *memBooks) UpdateMarketResearch(_ context.Context, id string, research map[string]any, p repository.BookProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.books[id]
	b.MarketResearch = research
	b.TargetAudience, b.Tone, b.Style, b.MarketPosition = p.TargetAudience, p.Tone, p.Style, p.MarketPosition
	b.Status = entity.BookStatusResearched
	return nil
}

func (m *memBooks) UpdateStructure(_ context.Context, id string, s map[string]any, title, subtitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.books[id]
	b.Structure, b.Title, b.Subtitle = s, title, subtitle
	return nil
}

func (m *memBooks) UpdateReferenceList(_ context.Context, id string, list []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[id].ReferenceList = pq.StringArray(list)
	return nil
}

func (m *memBooks) UpdateStatus(_ context.Context, id string, status entity.BookStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[id].Status = status
	return nil
}

type memUnits struct {
	mu     sync.Mutex
	units  map[string]*entity.Unit
	writes int
	nextID int
}

func newMemUnits(units ...*entity.Unit) *memUnits {
	m := &memUnits{units: make(map[string]*entity.Unit)}
	for _, u := range units {
		m.add(u)
	}
	return m
}

func (m *memUnits) add(u *entity.Unit) {
	if u.ID == "" {
		m.nextID++
		u.ID = fmt.Sprintf("unit-%d", m.nextID)
	}
	m.units[u.ID] = u
}

func (m *memUnits) Get(_ context.Context, id string) (*entity.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *memUnits) ListByBook(_ context.Context, bookID string, opts repository.UnitListOptions) ([]*entity.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Unit
	for _, u := range m.units {
		if u.BookID != bookID {
			continue
		}
		if opts.Before != nil && u.Ordinal >= *opts.Before {
			continue
		}
		if opts.Status != "" && u.Status != opts.Status {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (m *memUnits) Write(_ context.Context, id string, w entity.UnitWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return fmt.Errorf("unit %s missing", id)
	}
	u.Content, u.WordCount, u.Status, u.GenerationMetadata = w.Content, w.WordCount, w.Status, w.Metadata
	m.writes++
	return nil
}

func (m *memUnits) ReplaceForBook(_ context.Context, bookID string, units []*entity.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.units {
		if u.BookID == bookID {
			delete(m.units, id)
		}
	}
	for _, u := range units {
		m.add(u)
	}
	return nil
}

func (m *memUnits) get(id string) *entity.Unit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units[id]
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

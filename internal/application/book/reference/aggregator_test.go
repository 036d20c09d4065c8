package reference

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-book-ai-api/internal/domain/entity"
	apperrors "z-book-ai-api/pkg/errors"
)

type memStore struct {
	mu      sync.Mutex
	refs    map[string][]string
	updates int
}

func (s *memStore) Get(_ context.Context, id string) (*entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, ok := s.refs[id]
	if !ok {
		return nil, nil
	}
	return &entity.Book{Title: id, ReferenceList: pq.StringArray(append([]string(nil), refs...))}, nil
}

func (s *memStore) UpdateReferenceList(_ context.Context, id string, list []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[id] = append([]string(nil), list...)
	s.updates++
	return nil
}

func TestExtractCitations(t *testing.T) {
	t.Run("Should dedupe citations in first seen order", func(t *testing.T) {
		text := "Habits compound (Smith, 2023). Focus matters (Jones, 2022). Again (Smith, 2023)."
		assert.Equal(t, []string{"Smith (2023)", "Jones (2022)"}, ExtractCitations(text))
	})

	t.Run("Should ignore non citation parentheses", func(t *testing.T) {
		assert.Empty(t, ExtractCitations("see (figure 2) and (Smith 2023) and (Smith, 23)"))
	})

	t.Run("Should keep multi word sources", func(t *testing.T) {
		assert.Equal(t, []string{"World Health Organization (2021)"},
			ExtractCitations("Sleep (World Health Organization,  2021) matters"))
	})
}

func TestMerge(t *testing.T) {
	t.Run("Should be sorted and unique", func(t *testing.T) {
		got := Merge([]string{"b (2020)", "a (2021)", "b (2020)"}, []string{"c (2019)", "a (2021)"})
		assert.Equal(t, []string{"a (2021)", "b (2020)", "c (2019)"}, got)
		assert.True(t, sort.StringsAreSorted(got))
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		existing := []string{"Jones (2022)"}
		additions := []string{"Smith (2023)", "Adams (2001)"}
		once := Merge(existing, additions)
		assert.Equal(t, once, Merge(once, additions))
	})

	t.Run("Should not depend on additions order", func(t *testing.T) {
		assert.Equal(t,
			Merge(nil, []string{"x (2000)", "y (2001)"}),
			Merge(nil, []string{"y (2001)", "x (2000)"}),
		)
	})

	t.Run("Should return empty list for empty input", func(t *testing.T) {
		assert.Equal(t, []string{}, Merge(nil, nil))
	})
}

func TestAggregatorApply(t *testing.T) {
	ctx := context.Background()

	t.Run("Should merge citations into book reference list", func(t *testing.T) {
		store := &memStore{refs: map[string][]string{"b1": {}}}
		agg := NewAggregator(store, nil)

		text := "A (Smith, 2023) B (Jones, 2022) C (Smith, 2023)"
		got, err := agg.Apply(ctx, "b1", text)
		require.NoError(t, err)
		assert.Equal(t, []string{"Jones (2022)", "Smith (2023)"}, got)
		assert.Equal(t, []string{"Jones (2022)", "Smith (2023)"}, store.refs["b1"])

		_, err = agg.Apply(ctx, "b1", text)
		require.NoError(t, err)
		assert.Equal(t, 1, store.updates)
	})

	t.Run("Should not lose updates under concurrent units", func(t *testing.T) {
		store := &memStore{refs: map[string][]string{"b2": {}}}
		agg := NewAggregator(store, NewLocalLocker())

		texts := []string{"(A, 2001)", "(B, 2002)", "(C, 2003)", "(D, 2004)", "(E, 2005)"}
		var wg sync.WaitGroup
		for _, text := range texts {
			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				_, err := agg.Apply(ctx, "b2", text)
				assert.NoError(t, err)
			}(text)
		}
		wg.Wait()

		assert.Equal(t, []string{"A (2001)", "B (2002)", "C (2003)", "D (2004)", "E (2005)"}, store.refs["b2"])
	})

	t.Run("Should rewrite a stored list that carries duplicates", func(t *testing.T) {
		store := &memStore{refs: map[string][]string{"b3": {"Adams (2020)", "Adams (2020)"}}}
		agg := NewAggregator(store, nil)

		got, err := agg.Apply(ctx, "b3", "see (Brown, 2021)")
		require.NoError(t, err)
		assert.Equal(t, []string{"Adams (2020)", "Brown (2021)"}, got)
		assert.Equal(t, got, store.refs["b3"])
		assert.Equal(t, 1, store.updates)
	})

	t.Run("Should report missing book", func(t *testing.T) {
		agg := NewAggregator(&memStore{refs: map[string][]string{}}, nil)
		_, err := agg.Apply(ctx, "missing", "(A, 2001)")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeBookNotFound))
	})
}

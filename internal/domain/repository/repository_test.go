package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"z-book-ai-api/internal/domain/entity"
)

func TestJobQuery(t *testing.T) {
	t.Run("Should clamp paging", func(t *testing.T) {
		q := JobQuery{Page: 0, PageSize: 1000}
		assert.Equal(t, 0, q.Offset())
		assert.Equal(t, 100, q.Limit())
		assert.Equal(t, 40, JobQuery{Page: 3}.Offset())

		p := NewPage([]int{1}, 41, JobQuery{Page: -1})
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 20, p.PageSize)
	})

	t.Run("Should match on status and type when set", func(t *testing.T) {
		failedPlan := &entity.GenerationJob{JobType: entity.JobTypeBookPlan, Status: entity.JobStatusFailed}

		assert.True(t, JobQuery{}.Matches(failedPlan))
		assert.True(t, JobQuery{Status: entity.JobStatusFailed}.Matches(failedPlan))
		assert.False(t, JobQuery{Status: entity.JobStatusCompleted}.Matches(failedPlan))
		assert.False(t, JobQuery{Type: entity.JobTypeUnitRevise}.Matches(failedPlan))
		assert.False(t, JobQuery{}.Matches(nil))
	})
}

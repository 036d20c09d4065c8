package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStructure(t *testing.T) {
	t.Run("Should decode parts tree and fill defaults", func(t *testing.T) {
		obj := map[string]any{
			"title": "Focus",
			"parts": []any{
				map[string]any{
					"part_number": 1,
					"title":       "BASICS",
					"chapters": []any{
						map[string]any{"chapter_number": 1, "title": "Intro", "estimated_length": "2500 words"},
						map[string]any{"chapter_number": 2, "title": "Habits", "key_topics": "sleep, routines"},
					},
				},
			},
		}

		s, err := DecodeStructure(obj, 3000)
		require.NoError(t, err)
		require.Len(t, s.Parts, 1)
		assert.Equal(t, "I", s.Parts[0].Label)
		assert.Equal(t, 2500, s.Parts[0].Chapters[0].EstimatedLength)
		assert.Equal(t, 3000, s.Parts[0].Chapters[1].EstimatedLength)
		assert.Equal(t, []string{"sleep", "routines"}, s.Parts[0].Chapters[1].KeyTopics)
		assert.Equal(t, DefaultChapterDescription, s.Parts[0].Chapters[0].Description)
	})

	t.Run("Should wrap top level chapters into main content part", func(t *testing.T) {
		obj := map[string]any{
			"chapters": []any{
				map[string]any{"chapter_number": "1", "title": "A"},
				map[string]any{"title": "B"},
			},
		}
		s, err := DecodeStructure(obj, 3000)
		require.NoError(t, err)
		require.Len(t, s.Parts, 1)
		assert.Equal(t, MainContentTitle, s.Parts[0].Title)
		assert.Equal(t, 1, s.Parts[0].Chapters[0].ChapterNumber)
		assert.Equal(t, 2, s.Parts[0].Chapters[1].ChapterNumber)
	})

	t.Run("Should reject empty structures", func(t *testing.T) {
		_, err := DecodeStructure(map[string]any{}, 3000)
		assert.ErrorIs(t, err, ErrNoParts)

		_, err = DecodeStructure(map[string]any{"parts": []any{map[string]any{"title": "X"}}}, 3000)
		assert.ErrorIs(t, err, ErrEmptyPart)
	})

	t.Run("Should renumber chapters restarted in each part", func(t *testing.T) {
		obj := map[string]any{"parts": []any{
			map[string]any{"title": "WHY", "chapters": []any{
				map[string]any{"chapter_number": 1, "title": "Why Focus"},
				map[string]any{"chapter_number": 2, "title": "Costs"},
			}},
			map[string]any{"title": "HOW", "chapters": []any{
				map[string]any{"chapter_number": 1, "title": "Morning Blocks"},
				map[string]any{"chapter_number": 2, "title": "Evenings"},
			}},
		}}
		s, err := DecodeStructure(obj, 3000)
		require.NoError(t, err)
		var numbers []int
		var titles []string
		for _, p := range s.Parts {
			for _, ch := range p.Chapters {
				numbers = append(numbers, ch.ChapterNumber)
				titles = append(titles, ch.Title)
			}
		}
		assert.Equal(t, []int{1, 2, 3, 4}, numbers)
		assert.Equal(t, []string{"Why Focus", "Costs", "Morning Blocks", "Evenings"}, titles)
	})

	t.Run("Should fill missing and repeated numbers after the previous chapter", func(t *testing.T) {
		obj := map[string]any{"chapters": []any{
			map[string]any{"title": "A"},
			map[string]any{"chapter_number": 5, "title": "B"},
			map[string]any{"title": "C"},
			map[string]any{"chapter_number": 5, "title": "D"},
			map[string]any{"number": 3, "title": "E"},
			map[string]any{"chapter_number": 9, "title": "F"},
		}}
		s, err := DecodeStructure(obj, 3000)
		require.NoError(t, err)
		var numbers []int
		for _, ch := range s.Parts[0].Chapters {
			numbers = append(numbers, ch.ChapterNumber)
		}
		assert.Equal(t, []int{1, 5, 6, 7, 8, 9}, numbers)
		assert.NoError(t, s.Validate())
	})

	t.Run("Should reject duplicate chapter numbers on validate", func(t *testing.T) {
		s := &BookStructure{Parts: []Part{{PartNumber: 1, Chapters: []ChapterOutline{
			{ChapterNumber: 1, Title: "A"}, {ChapterNumber: 1, Title: "B"},
		}}}}
		assert.ErrorIs(t, s.Validate(), ErrDuplicateUnit)
	})

	t.Run("Should keep prologue ordinal zero", func(t *testing.T) {
		obj := map[string]any{"chapters": []any{
			map[string]any{"chapter_number": 0, "title": "Introduction"},
			map[string]any{"title": "Next"},
		}}
		s, err := DecodeStructure(obj, 3000)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Parts[0].Chapters[0].ChapterNumber)
		assert.Equal(t, 1, s.Parts[0].Chapters[1].ChapterNumber)
	})
}

func TestBookStructureLookup(t *testing.T) {
	s := &BookStructure{Parts: []Part{
		{PartNumber: 1, Chapters: []ChapterOutline{{ChapterNumber: 1, Title: "A"}, {ChapterNumber: 2, Title: "B"}}},
		{PartNumber: 2, Chapters: []ChapterOutline{{ChapterNumber: 7, Title: "C"}}},
	}}

	t.Run("Should find chapter with its part", func(t *testing.T) {
		ch, part, ok := s.FindChapter(7)
		require.True(t, ok)
		assert.Equal(t, "C", ch.Title)
		assert.Equal(t, 2, part.PartNumber)
	})

	t.Run("Should report counts", func(t *testing.T) {
		assert.Equal(t, 3, s.ChapterCount())
		assert.Equal(t, 7, s.MaxChapterNumber())
		_, _, ok := s.FindChapter(99)
		assert.False(t, ok)
	})

	t.Run("Should round trip through map", func(t *testing.T) {
		m, err := s.ToMap()
		require.NoError(t, err)
		back, err := DecodeStructure(m, 3000)
		require.NoError(t, err)
		assert.Equal(t, 3, back.ChapterCount())
	})
}

func TestMarketResearch(t *testing.T) {
	t.Run("Should decode loosely typed fields", func(t *testing.T) {
		m, err := DecodeMarketResearch(map[string]any{
			"audience":    "Busy managers",
			"pain_points": "overload; meetings",
			"desires":     []any{"calm", map[string]any{"name": "focus"}},
			"gaps":        []any{"no workbooks"},
			"tone":        []any{"warm", "direct"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Busy managers", m.TargetAudience)
		assert.Equal(t, []string{"overload", "meetings"}, m.PainPoints)
		assert.Equal(t, []string{"calm", "focus"}, m.Desires)
		assert.Equal(t, []string{"no workbooks"}, m.MarketGaps)
		assert.Equal(t, "warm, direct", m.Tone)
	})

	t.Run("Should fill defaults on normalize", func(t *testing.T) {
		m := (&MarketResearch{Tone: "Academic"}).Normalize()
		assert.Equal(t, "Academic", m.Tone)
		assert.Equal(t, DefaultTargetAudience, m.TargetAudience)
		assert.Equal(t, DefaultStyle, m.Style)
		assert.NotNil(t, m.PainPoints)
	})
}

func TestRomanNumeral(t *testing.T) {
	assert.Equal(t, "I", RomanNumeral(1))
	assert.Equal(t, "IV", RomanNumeral(4))
	assert.Equal(t, "IX", RomanNumeral(9))
	assert.Equal(t, "XIV", RomanNumeral(14))
	assert.Equal(t, "0", RomanNumeral(0))
}

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MainContentTitle 只有章节没有分部时合成的唯一分部标题
const MainContentTitle = "MAIN CONTENT"

// DefaultChapterDescription 章节缺少描述时的占位
const DefaultChapterDescription = "Detailed exploration of this topic with practical guidance and examples."

var (
	ErrNoParts       = errors.New("structure has no parts")
	ErrEmptyPart     = errors.New("structure part has no chapters")
	ErrDuplicateUnit = errors.New("structure chapter numbers are not unique")
)

// BookStructure 目录结构：有序分部，每个分部包含有序章节
type BookStructure struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Parts    []Part `json:"parts"`
}

// Part 分部
type Part struct {
	PartNumber int              `json:"part_number"`
	Label      string           `json:"label"`
	Title      string           `json:"title"`
	Chapters   []ChapterOutline `json:"chapters"`
}

// ChapterOutline 章节大纲，ChapterNumber 在全书唯一
type ChapterOutline struct {
	ChapterNumber   int      `json:"chapter_number"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	EstimatedLength int      `json:"estimated_length"`
	KeyTopics       []string `json:"key_topics"`
	KeyPoints       []string `json:"key_points"`
}

type rawStructure struct {
	Title    flexString      `json:"title"`
	Subtitle flexString      `json:"subtitle"`
	Parts    []rawPart       `json:"parts"`
	Chapters []rawChapter    `json:"chapters"`
	Items    json.RawMessage `json:"items"`
}

type rawPart struct {
	PartNumber flexInt      `json:"part_number"`
	Number     flexInt      `json:"number"`
	Label      flexString   `json:"label"`
	Title      flexString   `json:"title"`
	Chapters   []rawChapter `json:"chapters"`
}

type rawChapter struct {
	ChapterNumber   flexInt    `json:"chapter_number"`
	Number          flexInt    `json:"number"`
	Title           flexString `json:"title"`
	Description     flexString `json:"description"`
	EstimatedLength flexInt    `json:"estimated_length"`
	KeyTopics       stringList `json:"key_topics"`
	KeyPoints       stringList `json:"key_points"`
}

// DecodeStructure 从提取出的结构化对象解码目录结构并校验。
// 顶层只有 chapters（或被包装的章节数组 items）时包装成单一 MAIN CONTENT 分部；缺失的篇幅用 defaultLength 填充。
// 章节号全书严格递增：缺失、重复或不递增的章节号改为上一个章节号加一。
func DecodeStructure(obj map[string]any, defaultLength int) (*BookStructure, error) {
	if obj == nil {
		return nil, ErrNoParts
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode structure: %w", err)
	}
	var raw rawStructure
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode structure: %w", err)
	}

	parts := raw.Parts
	if len(parts) == 0 && len(raw.Chapters) == 0 && len(raw.Items) > 0 {
		// 顶层直接是章节数组
		if err := json.Unmarshal(raw.Items, &raw.Chapters); err != nil {
			return nil, fmt.Errorf("decode structure items: %w", err)
		}
	}
	if len(parts) == 0 && len(raw.Chapters) > 0 {
		parts = []rawPart{{Title: MainContentTitle, Chapters: raw.Chapters}}
	}

	s := &BookStructure{
		Title:    string(raw.Title),
		Subtitle: string(raw.Subtitle),
		Parts:    make([]Part, 0, len(parts)),
	}

	last, numbered := 0, false
	for i, rp := range parts {
		p := Part{
			PartNumber: pickInt(rp.PartNumber, rp.Number, i+1),
			Label:      string(rp.Label),
			Title:      string(rp.Title),
			Chapters:   make([]ChapterOutline, 0, len(rp.Chapters)),
		}
		if p.Label == "" {
			p.Label = RomanNumeral(p.PartNumber)
		}
		for _, rc := range rp.Chapters {
			number, given := chapterNumber(rc)
			if !given || (numbered && number <= last) {
				number = last + 1
			}
			last, numbered = number, true
			ch := ChapterOutline{
				ChapterNumber:   number,
				Title:           string(rc.Title),
				Description:     string(rc.Description),
				EstimatedLength: rc.EstimatedLength.value,
				KeyTopics:       nonNil(rc.KeyTopics),
				KeyPoints:       nonNil(rc.KeyPoints),
			}
			if ch.Title == "" {
				ch.Title = "Chapter " + strconv.Itoa(number)
			}
			if ch.Description == "" {
				ch.Description = DefaultChapterDescription
			}
			if ch.EstimatedLength <= 0 {
				ch.EstimatedLength = defaultLength
			}
			p.Chapters = append(p.Chapters, ch)
		}
		s.Parts = append(s.Parts, p)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// chapterNumber 各分部从 1 重新编号的输出很常见，是否采用由调用方决定
func chapterNumber(rc rawChapter) (int, bool) {
	switch {
	case rc.ChapterNumber.set:
		return rc.ChapterNumber.value, true
	case rc.Number.set:
		return rc.Number.value, true
	default:
		return 0, false
	}
}

func pickInt(primary, secondary flexInt, fallback int) int {
	switch {
	case primary.set:
		return primary.value
	case secondary.set:
		return secondary.value
	default:
		return fallback
	}
}

// Validate 检查目录结构不变量：分部非空、每个分部章节非空、章节号全书唯一
func (s *BookStructure) Validate() error {
	if s == nil || len(s.Parts) == 0 {
		return ErrNoParts
	}
	seen := make(map[int]struct{})
	for _, p := range s.Parts {
		if len(p.Chapters) == 0 {
			return fmt.Errorf("%w: part %d", ErrEmptyPart, p.PartNumber)
		}
		for _, ch := range p.Chapters {
			if _, dup := seen[ch.ChapterNumber]; dup {
				return fmt.Errorf("%w: chapter %d", ErrDuplicateUnit, ch.ChapterNumber)
			}
			seen[ch.ChapterNumber] = struct{}{}
		}
	}
	return nil
}

// ChapterCount 章节总数
func (s *BookStructure) ChapterCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, p := range s.Parts {
		n += len(p.Chapters)
	}
	return n
}

// MaxChapterNumber 当前最大章节号，没有章节时为 0
func (s *BookStructure) MaxChapterNumber() int {
	highest := 0
	if s == nil {
		return highest
	}
	for _, p := range s.Parts {
		for _, ch := range p.Chapters {
			if ch.ChapterNumber > highest {
				highest = ch.ChapterNumber
			}
		}
	}
	return highest
}

// FindChapter 按章节号查找章节及其所属分部
func (s *BookStructure) FindChapter(number int) (*ChapterOutline, *Part, bool) {
	if s == nil {
		return nil, nil, false
	}
	for i := range s.Parts {
		p := &s.Parts[i]
		for j := range p.Chapters {
			if p.Chapters[j].ChapterNumber == number {
				return &p.Chapters[j], p, true
			}
		}
	}
	return nil, nil, false
}

// ToMap 转为可持久化的 jsonb 对象
func (s *BookStructure) ToMap() (map[string]any, error) {
	return toMap(s)
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// RomanNumeral 正整数转罗马数字，非正数返回十进制字符串
func RomanNumeral(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}

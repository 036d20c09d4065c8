package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"z-book-ai-api/internal/application/book/model"
)

// ReconstructOptions 启发式重建参数
type ReconstructOptions struct {
	// MinChapters 重建结果的最少章节数，不足时追加补充分部
	MinChapters int
	// ChaptersPerPart 合成分部的章节数
	ChaptersPerPart int
	// DefaultLength 合成章节的预估字数
	DefaultLength int
}

// DefaultReconstructOptions 默认重建参数
func DefaultReconstructOptions() ReconstructOptions {
	return ReconstructOptions{MinChapters: 30, ChaptersPerPart: 4, DefaultLength: 3000}
}

// WithDefaults 非正数字段取默认值
func (o ReconstructOptions) WithDefaults() ReconstructOptions {
	d := DefaultReconstructOptions()
	if o.MinChapters <= 0 {
		o.MinChapters = d.MinChapters
	}
	if o.ChaptersPerPart <= 0 {
		o.ChaptersPerPart = d.ChaptersPerPart
	}
	if o.DefaultLength <= 0 {
		o.DefaultLength = d.DefaultLength
	}
	return o
}

const (
	fallbackTitle    = "Generated Book"
	fallbackSubtitle = "A Comprehensive Guide"
)

// 没有识别到任何分部和章节时使用的通用骨架
var genericPartTitles = []string{
	"FOUNDATIONS",
	"CORE CONCEPTS",
	"PRACTICAL APPLICATIONS",
	"ADVANCED TECHNIQUES",
	"CASE STUDIES",
	"COMMON CHALLENGES",
	"TOOLS AND RESOURCES",
	"FUTURE DIRECTIONS",
}

var (
	titlePattern    = regexp.MustCompile(`(?im)^[\s#*"]*title["\s*]*:\s*(.+)$`)
	subtitlePattern = regexp.MustCompile(`(?im)^[\s#*"]*subtitle["\s*]*:\s*(.+)$`)
	partPattern     = regexp.MustCompile(`(?im)^[\s#*]*part\s+([A-Za-z0-9]+)\s*[:.\-–]\s*(.+?)[\s*]*$`)
	chapterPattern  = regexp.MustCompile(`(?im)^[\s#*\-]*chapter\s+(\d+)\s*[:.\-–]\s*(.+?)[\s*]*$`)
	headingPattern  = regexp.MustCompile(`(?i)^[\s#*\-]*(part|chapter)\s+[A-Za-z0-9]+`)
)

type foundPart struct {
	offset int
	label  string
	title  string
}

type foundChapter struct {
	offset      int
	number      int
	title       string
	description string
}

// Reconstruct 从任意文本重建目录结构对象。
// 结果总满足：至少一个分部、每个分部非空、章节号唯一、章节总数不少于 MinChapters。
func Reconstruct(raw string, opts ReconstructOptions) (map[string]any, error) {
	opts = opts.WithDefaults()

	s := &model.BookStructure{
		Title:    firstMatch(titlePattern, raw, fallbackTitle),
		Subtitle: firstMatch(subtitlePattern, raw, fallbackSubtitle),
	}

	parts := findParts(raw)
	chapters := findChapters(raw)

	switch {
	case len(parts) == 0 && len(chapters) == 0:
		s.Parts = genericParts(opts)
	case len(parts) == 0:
		s.Parts = []model.Part{{PartNumber: 1, Label: "I", Title: model.MainContentTitle}}
		for _, c := range chapters {
			s.Parts[0].Chapters = append(s.Parts[0].Chapters, c.outline(opts.DefaultLength))
		}
	default:
		s.Parts = make([]model.Part, len(parts))
		for i, p := range parts {
			label := p.label
			if label == "" {
				label = model.RomanNumeral(i + 1)
			}
			s.Parts[i] = model.Part{PartNumber: i + 1, Label: label, Title: p.title}
		}
		for _, c := range chapters {
			idx := owningPart(parts, c.offset)
			s.Parts[idx].Chapters = append(s.Parts[idx].Chapters, c.outline(opts.DefaultLength))
		}
	}

	next := s.MaxChapterNumber() + 1
	for i := range s.Parts {
		if len(s.Parts[i].Chapters) == 0 {
			s.Parts[i].Chapters = syntheticChapters(&next, opts)
		}
	}
	for k := 1; s.ChapterCount() < opts.MinChapters; k++ {
		n := len(s.Parts) + 1
		s.Parts = append(s.Parts, model.Part{
			PartNumber: n,
			Label:      model.RomanNumeral(n),
			Title:      fmt.Sprintf("ADDITIONAL TOPICS %d", k),
			Chapters:   syntheticChapters(&next, opts),
		})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s.ToMap()
}

// ExtractStructure 提取并解码目录结构；前三级解析出的对象必须能解码为合法结构
func ExtractStructure(raw string, opts ReconstructOptions, extra ...Option) (*model.BookStructure, Tier, error) {
	opts = opts.WithDefaults()
	validate := func(obj map[string]any) error {
		_, err := model.DecodeStructure(obj, opts.DefaultLength)
		return err
	}
	all := append([]Option{WithValidator(validate), WithReconstructOptions(opts)}, extra...)
	res, err := New(all...).Extract(raw)
	if err != nil {
		return nil, 0, err
	}
	s, err := model.DecodeStructure(res.Object, opts.DefaultLength)
	if err != nil {
		return nil, res.Tier, fmt.Errorf("%w: %v", ErrExhausted, err)
	}
	return s, res.Tier, nil
}

func firstMatch(re *regexp.Regexp, raw, fallback string) string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return fallback
	}
	if v := cleanHeading(m[1]); v != "" {
		return v
	}
	return fallback
}

// cleanHeading 去掉 markdown 强调、引号和行尾逗号
func cleanHeading(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ",")
	return strings.Trim(s, " \t*#\"'`")
}

func findParts(raw string) []foundPart {
	var out []foundPart
	for _, m := range partPattern.FindAllStringSubmatchIndex(raw, -1) {
		out = append(out, foundPart{
			offset: m[0],
			label:  strings.ToUpper(raw[m[2]:m[3]]),
			title:  strings.ToUpper(cleanHeading(raw[m[4]:m[5]])),
		})
	}
	return out
}

func findChapters(raw string) []foundChapter {
	seen := make(map[int]struct{})
	var out []foundChapter
	for _, m := range chapterPattern.FindAllStringSubmatchIndex(raw, -1) {
		n, err := strconv.Atoi(raw[m[2]:m[3]])
		if err != nil {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, foundChapter{
			offset:      m[0],
			number:      n,
			title:       cleanHeading(raw[m[4]:m[5]]),
			description: descriptionAfter(raw, m[1]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].offset < out[j].offset })
	return out
}

// descriptionAfter 章节标题后的第一行非标题正文
func descriptionAfter(raw string, from int) string {
	for _, line := range strings.Split(raw[from:], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if headingPattern.MatchString(line) {
			return ""
		}
		return cleanHeading(strings.TrimLeft(line, "-*> "))
	}
	return ""
}

// owningPart 章节归属于它之前最近的分部，出现在第一个分部之前的章节归入第一个分部
func owningPart(parts []foundPart, offset int) int {
	idx := 0
	for i, p := range parts {
		if p.offset < offset {
			idx = i
		}
	}
	return idx
}

func (c foundChapter) outline(length int) model.ChapterOutline {
	desc := c.description
	if desc == "" {
		desc = model.DefaultChapterDescription
	}
	title := c.title
	if title == "" {
		title = "Chapter " + strconv.Itoa(c.number)
	}
	return model.ChapterOutline{
		ChapterNumber:   c.number,
		Title:           title,
		Description:     desc,
		EstimatedLength: length,
		KeyTopics:       []string{},
		KeyPoints:       []string{},
	}
}

func genericParts(opts ReconstructOptions) []model.Part {
	next := 1
	parts := make([]model.Part, 0, len(genericPartTitles))
	for i, title := range genericPartTitles {
		parts = append(parts, model.Part{
			PartNumber: i + 1,
			Label:      model.RomanNumeral(i + 1),
			Title:      title,
			Chapters:   syntheticChapters(&next, opts),
		})
	}
	return parts
}

func syntheticChapters(next *int, opts ReconstructOptions) []model.ChapterOutline {
	out := make([]model.ChapterOutline, 0, opts.ChaptersPerPart)
	for i := 0; i < opts.ChaptersPerPart; i++ {
		out = append(out, model.ChapterOutline{
			ChapterNumber:   *next,
			Title:           "Chapter " + strconv.Itoa(*next),
			Description:     model.DefaultChapterDescription,
			EstimatedLength: opts.DefaultLength,
			KeyTopics:       []string{},
			KeyPoints:       []string{},
		})
		*next++
	}
	return out
}

// Package reference 从生成正文中抽取引用并合并进书籍级参考文献列表
package reference

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"z-book-ai-api/internal/domain/entity"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
)

// citationPattern 匹配 (Source, 2023)
var citationPattern = regexp.MustCompile(`\(([^()]+?),\s*(\d{4})\)`)

// ExtractCitations 按出现顺序返回去重后的 "Source (Year)"
func ExtractCitations(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		source := strings.TrimSpace(m[1])
		if source == "" {
			continue
		}
		ref := fmt.Sprintf("%s (%s)", source, m[2])
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// Merge 按字符串精确相等取并集并排序，结果不含重复项
func Merge(existing, additions []string) []string {
	set := make(map[string]struct{}, len(existing)+len(additions))
	for _, r := range existing {
		set[r] = struct{}{}
	}
	for _, r := range additions {
		set[r] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Store 参考文献列表的读写方
type Store interface {
	Get(ctx context.Context, id string) (*entity.Book, error)
	UpdateReferenceList(ctx context.Context, id string, list []string) error
}

// Locker 按书籍串行化读-合并-写
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Aggregator 书籍级参考文献聚合器
type Aggregator struct {
	store  Store
	locker Locker
}

// NewAggregator 创建聚合器，locker 为空时使用进程内锁
func NewAggregator(store Store, locker Locker) *Aggregator {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Aggregator{store: store, locker: locker}
}

// Apply 抽取 text 中的引用并合并进书籍参考文献列表，返回合并后的列表
func (a *Aggregator) Apply(ctx context.Context, bookID, text string) ([]string, error) {
	additions := ExtractCitations(text)

	unlock, err := a.locker.Lock(ctx, "book:refs:"+bookID)
	if err != nil {
		return nil, fmt.Errorf("lock reference list: %w", err)
	}
	defer unlock()

	book, err := a.store.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.New(apperrors.CodeBookNotFound, "book not found").WithDetail(bookID)
	}

	existing := []string(book.ReferenceList)
	merged := Merge(existing, additions)
	if slices.Equal(merged, existing) {
		return merged, nil
	}
	if err := a.store.UpdateReferenceList(ctx, bookID, merged); err != nil {
		return nil, err
	}

	metrics.ReferenceListSize.Observe(float64(len(merged)))
	logger.Debug(ctx, "reference list merged",
		"book_id", bookID,
		"added", len(merged)-len(existing),
		"total", len(merged),
	)
	return merged, nil
}

// LocalLocker 进程内按 key 加锁，单实例部署或测试时使用
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

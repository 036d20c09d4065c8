// Package book 编排书籍生成流水线：市场调研 → 目录结构 → 逐章生成（可选资料补充） → 修订
package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"z-book-ai-api/internal/application/book/extract"
	"z-book-ai-api/internal/application/book/reference"
	"z-book-ai-api/internal/domain/repository"
	workflowport "z-book-ai-api/internal/workflow/port"
	workflowprompt "z-book-ai-api/internal/workflow/prompt"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
	"z-book-ai-api/pkg/tracer"
)

// 观测用的工作流名
const (
	workflowMarketResearch = "market_research"
	workflowBookStructure  = "book_structure"
	workflowUnitResearch   = "unit_research"
	workflowUnitWrite      = "unit_write"
	workflowUnitRevise     = "unit_revise"
)

var errEmptyResponse = errors.New("empty generation response")

// ResearchCache 调研结果缓存，redis.Cache 满足该接口
type ResearchCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// Orchestrator 书籍生成流水线
type Orchestrator struct {
	gen   workflowport.GenerationService
	books repository.BookRepository
	units repository.UnitRepository

	settings Settings
	prompts  *workflowprompt.Registry
	refs     *reference.Aggregator
	locker   reference.Locker
	cache    ResearchCache
	tx       repository.Transactor
	now      func() time.Time
}

// Option 编排器选项
type Option func(*Orchestrator)

// WithResearchCache 启用调研结果缓存
func WithResearchCache(c ResearchCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithTransactor 规划阶段的多表写入放进同一事务
func WithTransactor(tx repository.Transactor) Option {
	return func(o *Orchestrator) { o.tx = tx }
}

// WithLocker 参考文献合并使用的按书加锁实现
func WithLocker(l reference.Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithClock 测试用
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithPromptRegistry 替换提示词注册表
func WithPromptRegistry(r *workflowprompt.Registry) Option {
	return func(o *Orchestrator) { o.prompts = r }
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	gen workflowport.GenerationService,
	books repository.BookRepository,
	units repository.UnitRepository,
	settings Settings,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		gen:      gen,
		books:    books,
		units:    units,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.prompts == nil {
		o.prompts = workflowprompt.NewRegistry()
	}
	o.refs = reference.NewAggregator(books, o.locker)
	return o
}

// runStage 执行一个阶段：span、耗时与计数指标、失败时打上阶段标签
func (o *Orchestrator) runStage(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.StartStage(ctx, strings.ReplaceAll(stage, " ", "_"))
	start := o.now()

	err := stageErr(stage, fn(ctx))

	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(o.now().Sub(start).Seconds())
	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.PipelineStageTotal.WithLabelValues(stage, status).Inc()
	tracer.End(span, err)

	if err != nil {
		logger.Error(ctx, "pipeline stage failed", err, "stage", stage)
		return err
	}
	logger.Info(ctx, "pipeline stage finished", "stage", stage, "duration_ms", o.now().Sub(start).Milliseconds())
	return nil
}

// call 渲染提示词并发起一次生成；空回复视为失败
func (o *Orchestrator) call(
	ctx context.Context,
	stage, workflow string,
	profile StageProfile,
	id workflowprompt.PromptID,
	vars map[string]any,
	jsonMode bool,
) (*workflowport.GenerationResult, error) {
	if o.gen == nil {
		return nil, fmt.Errorf("generation service not configured")
	}
	msgs, err := o.prompts.Format(ctx, id, vars)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "pipeline stage started",
		"stage", stage,
		"provider", profile.Provider,
		"model", profile.Model,
		"temperature", profile.Temperature,
		"max_tokens", profile.MaxTokens,
	)
	res, err := o.gen.Generate(ctx, &workflowport.GenerationRequest{
		Workflow:    workflow,
		Provider:    profile.Provider,
		Model:       profile.Model,
		Messages:    msgs,
		Temperature: profile.Temperature,
		MaxTokens:   profile.MaxTokens,
		JSONMode:    jsonMode,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return nil, errEmptyResponse
	}
	return res, nil
}

// tierObserver 记录命中的提取级别，降级时告警
func tierObserver(ctx context.Context, stage string) func(extract.Tier) {
	return func(t extract.Tier) {
		metrics.ExtractTierTotal.WithLabelValues(t.String()).Inc()
		if t != extract.TierDirect {
			logger.Warn(ctx, "structured response fell back", "stage", stage, "tier", t.String())
		}
	}
}

// withTx 有事务管理器时在事务内执行
func (o *Orchestrator) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if o.tx == nil {
		return fn(ctx)
	}
	return o.tx.WithTransaction(ctx, fn)
}

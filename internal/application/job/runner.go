package job

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"z-book-ai-api/internal/application/book"
	"z-book-ai-api/internal/application/quota"
	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	llmctx "z-book-ai-api/internal/domain/service"
	"z-book-ai-api/internal/infrastructure/messaging"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// Pipeline 任务执行依赖的流水线操作
type Pipeline interface {
	PlanBook(ctx context.Context, bookID string) (*book.PlanResult, error)
	RunUnitGeneration(ctx context.Context, unitID string) (*book.UnitResult, error)
	RunUnitRevision(ctx context.Context, unitID, instructions string) (*book.UnitResult, error)
	GenerateAll(ctx context.Context, bookID string) ([]*book.UnitResult, error)
}

// Runner 消费生成队列中的任务
type Runner struct {
	pipeline   Pipeline
	jobs       repository.JobRepository
	usage      repository.LLMUsageEventRepository
	budget     *quota.TokenBudgetChecker
	dispatcher *Dispatcher
}

// NewRunner 创建任务执行器；usage 与 budget 可为 nil
func NewRunner(
	pipeline Pipeline,
	jobs repository.JobRepository,
	usage repository.LLMUsageEventRepository,
	budget *quota.TokenBudgetChecker,
	dispatcher *Dispatcher,
) *Runner {
	return &Runner{
		pipeline:   pipeline,
		jobs:       jobs,
		usage:      usage,
		budget:     budget,
		dispatcher: dispatcher,
	}
}

// Register 为每种任务类型注册处理器
func (r *Runner) Register(c *messaging.Consumer) {
	for _, t := range []entity.JobType{
		entity.JobTypeBookPlan,
		entity.JobTypeUnitGenerate,
		entity.JobTypeUnitRevise,
		entity.JobTypeBookGenerateAll,
	} {
		c.RegisterHandler(string(t), r.Handle)
	}
}

// Handle 执行一条任务消息。
// 返回 nil 表示消息可以确认：成功或不可重试的失败；其余错误留给队列重投。
func (r *Runner) Handle(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.JobMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		logger.Error(ctx, "invalid job payload", err, "message_id", msg.ID)
		return nil
	}
	ctx = logger.WithContext(ctx, logger.JobIDKey, payload.JobID)

	job, err := r.jobs.GetByID(ctx, payload.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		logger.Warn(ctx, "job record missing, dropping message", "job_id", payload.JobID)
		return nil
	}
	if job.Status == entity.JobStatusCompleted {
		logger.Info(ctx, "job already completed, skipping redelivery")
		return nil
	}

	if job.Status == entity.JobStatusFailed {
		job.RetryCount++
	}
	job.Start()
	job.UpdateProgress(10)
	if err := r.jobs.Update(ctx, job); err != nil {
		return err
	}

	meter := llmctx.NewUsageMeter()
	ctx = llmctx.WithUsageRecorder(ctx, quota.Tee{meter, quota.NewLLMUsageRecorder(r.usage, job.ID)})
	ctx = llmctx.WithBook(ctx, job.BookID)

	result, runErr := r.run(ctx, job, payload)

	totals := meter.Totals()
	job.AddLLMUsage(totals.Provider, totals.Model, totals.PromptTokens, totals.CompletionTokens)

	if runErr != nil {
		job.Fail(runErr.Error())
		if err := r.jobs.Update(ctx, job); err != nil {
			logger.Error(ctx, "failed to record job failure", err)
		}
		if permanent(runErr) {
			logger.Warn(ctx, "job failed permanently", "job_type", job.JobType, "error", runErr.Error())
			return nil
		}
		return runErr
	}

	out, err := json.Marshal(result)
	if err != nil {
		return err
	}
	job.Complete(out)
	if err := r.jobs.Update(ctx, job); err != nil {
		return err
	}
	logger.Info(ctx, "job completed",
		"job_type", job.JobType,
		"duration_ms", job.DurationMs,
		"tokens_prompt", job.TokensPrompt,
		"tokens_completion", job.TokensComplete,
	)
	return nil
}

func (r *Runner) run(ctx context.Context, job *entity.GenerationJob, payload messaging.JobMessage) (any, error) {
	if _, err := r.budget.Check(ctx, job.BookID); err != nil {
		return nil, err
	}

	switch job.JobType {
	case entity.JobTypeBookPlan:
		res, err := r.pipeline.PlanBook(ctx, job.BookID)
		if err != nil {
			return nil, err
		}
		out := planOutput{
			BookID: res.BookID,
			Title:  res.Structure.Title,
			Parts:  len(res.Structure.Parts),
			Units:  len(res.Units),
		}
		if payload.Params.AutoGenerate {
			out.Enqueued = r.enqueueUnits(ctx, res.BookID, res.Units)
		}
		return out, nil

	case entity.JobTypeUnitGenerate:
		res, err := r.pipeline.RunUnitGeneration(ctx, job.UnitID)
		if err != nil {
			return nil, err
		}
		return toUnitOutput(res), nil

	case entity.JobTypeUnitRevise:
		res, err := r.pipeline.RunUnitRevision(ctx, job.UnitID, payload.Params.Instructions)
		if err != nil {
			return nil, err
		}
		return toUnitOutput(res), nil

	case entity.JobTypeBookGenerateAll:
		results, err := r.pipeline.GenerateAll(ctx, job.BookID)
		out := generateAllOutput{BookID: job.BookID, Units: make([]unitOutput, 0, len(results))}
		for _, res := range results {
			out.Units = append(out.Units, toUnitOutput(res))
		}
		if err != nil {
			return nil, fmt.Errorf("generated %d units before failing: %w", len(results), err)
		}
		return out, nil

	default:
		return nil, apperrors.New(apperrors.CodeInvalidParam, "unknown job type").WithDetail(string(job.JobType))
	}
}

// enqueueUnits 按 ordinal 顺序为每个单元排队生成任务，返回成功排队的数量
func (r *Runner) enqueueUnits(ctx context.Context, bookID string, units []*entity.Unit) int {
	if r.dispatcher == nil {
		return 0
	}
	n := 0
	for _, u := range units {
		if _, err := r.dispatcher.Enqueue(ctx, EnqueueRequest{
			BookID: bookID,
			UnitID: u.ID,
			Type:   entity.JobTypeUnitGenerate,
		}); err != nil {
			logger.Error(ctx, "failed to enqueue unit generation", err, "unit_id", u.ID, "ordinal", u.Ordinal)
			continue
		}
		n++
	}
	return n
}

// permanent 客户端类错误重试也不会成功；锁冲突除外
func permanent(err error) bool {
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeLockBusy || appErr.Code == apperrors.CodeUnknown {
		return false
	}
	return appErr.HTTPStatus < http.StatusInternalServerError
}

type planOutput struct {
	BookID   string `json:"book_id"`
	Title    string `json:"title"`
	Parts    int    `json:"parts"`
	Units    int    `json:"units"`
	Enqueued int    `json:"enqueued,omitempty"`
}

type unitOutput struct {
	UnitID     string   `json:"unit_id"`
	Ordinal    int      `json:"ordinal"`
	WordCount  int      `json:"word_count"`
	Status     string   `json:"status"`
	References []string `json:"references"`
	Revised    bool     `json:"revised,omitempty"`
}

type generateAllOutput struct {
	BookID string       `json:"book_id"`
	Units  []unitOutput `json:"units"`
}

func toUnitOutput(res *book.UnitResult) unitOutput {
	return unitOutput{
		UnitID:     res.UnitID,
		Ordinal:    res.Ordinal,
		WordCount:  res.WordCount,
		Status:     string(res.Status),
		References: res.References,
		Revised:    res.Meta.Revised,
	}
}

// Package job 负责生成任务的登记、投递与执行
package job

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	"z-book-ai-api/internal/infrastructure/messaging"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// Publisher 任务消息投递
type Publisher interface {
	PublishJob(ctx context.Context, job *messaging.JobMessage) (string, error)
}

// EnqueueRequest 登记任务的参数
type EnqueueRequest struct {
	BookID string
	UnitID string
	Type   entity.JobType
	Params messaging.JobParams
}

// Dispatcher 先落库任务记录再投递消息
type Dispatcher struct {
	jobs      repository.JobRepository
	publisher Publisher
}

// NewDispatcher 创建任务分发器
func NewDispatcher(jobs repository.JobRepository, publisher Publisher) *Dispatcher {
	return &Dispatcher{jobs: jobs, publisher: publisher}
}

// Enqueue 创建 pending 任务并投递到生成队列；投递失败时任务标记为 failed
func (d *Dispatcher) Enqueue(ctx context.Context, req EnqueueRequest) (*entity.GenerationJob, error) {
	if strings.TrimSpace(req.BookID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "book id is required")
	}
	switch req.Type {
	case entity.JobTypeBookPlan, entity.JobTypeBookGenerateAll:
	case entity.JobTypeUnitGenerate, entity.JobTypeUnitRevise:
		if strings.TrimSpace(req.UnitID) == "" {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "unit id is required").WithDetail(string(req.Type))
		}
	default:
		return nil, apperrors.New(apperrors.CodeInvalidParam, "unknown job type").WithDetail(string(req.Type))
	}
	if req.Type == entity.JobTypeUnitRevise && strings.TrimSpace(req.Params.Instructions) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "revision instructions are required")
	}

	params, err := json.Marshal(req.Params)
	if err != nil {
		return nil, err
	}
	job := entity.NewGenerationJob(req.BookID, req.UnitID, req.Type, params)
	job.ID = uuid.NewString()
	if err := d.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	_, err = d.publisher.PublishJob(ctx, &messaging.JobMessage{
		JobID:   job.ID,
		BookID:  job.BookID,
		UnitID:  job.UnitID,
		JobType: string(job.JobType),
		Params:  req.Params,
	})
	if err != nil {
		job.Fail(err.Error())
		if uerr := d.jobs.Update(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to mark undelivered job", uerr, "job_id", job.ID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeQueueError, "failed to enqueue job")
	}

	logger.Info(ctx, "job enqueued", "job_id", job.ID, "job_type", job.JobType, "book_id", job.BookID)
	return job, nil
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/application/job"
	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/interfaces/http/dto"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// Enqueuer 任务登记与投递
type Enqueuer interface {
	Enqueue(ctx context.Context, req job.EnqueueRequest) (*entity.GenerationJob, error)
}

// respondError 统一错误出口；服务端错误记录日志
func respondError(c *gin.Context, msg string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), msg, err)
	}
	dto.FromError(c, err)
}

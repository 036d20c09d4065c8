// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/domain/repository"
	"z-book-ai-api/internal/interfaces/http/dto"
	apperrors "z-book-ai-api/pkg/errors"
)

// JobHandler 任务处理器
type JobHandler struct {
	jobRepo repository.JobRepository
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobRepo repository.JobRepository) *JobHandler {
	return &JobHandler{
		jobRepo: jobRepo,
	}
}

// GetJob 获取任务详情
// @Summary 获取任务详情
// @Description 获取指定任务的状态、用量与结果
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/jobs/{jid} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := dto.BindJobID(c)

	job, err := h.jobRepo.GetByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, "failed to get job", err)
		return
	}
	if job == nil {
		dto.FromError(c, apperrors.New(apperrors.CodeJobNotFound, "job not found").WithDetail(jobID))
		return
	}

	dto.Success(c, dto.ToJobResponse(job))
}

package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/application/job"
	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	"z-book-ai-api/internal/infrastructure/messaging"
	"z-book-ai-api/internal/interfaces/http/dto"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// UnitHandler 单元处理器
type UnitHandler struct {
	units    repository.UnitRepository
	enqueuer Enqueuer
}

// NewUnitHandler 创建单元处理器
func NewUnitHandler(units repository.UnitRepository, enqueuer Enqueuer) *UnitHandler {
	return &UnitHandler{units: units, enqueuer: enqueuer}
}

// GetUnit 获取单元详情
// @Summary 获取单元
// @Tags Units
// @Produce json
// @Param uid path string true "单元 ID"
// @Success 200 {object} dto.Response[dto.UnitResponse]
// @Router /api/v1/units/{uid} [get]
func (h *UnitHandler) GetUnit(c *gin.Context) {
	unit, ok := h.loadUnit(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToUnitResponse(unit))
}

// GenerateUnit 排队生成单元正文
// @Summary 生成单元
// @Tags Units
// @Produce json
// @Param uid path string true "单元 ID"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Router /api/v1/units/{uid}/generate [post]
func (h *UnitHandler) GenerateUnit(c *gin.Context) {
	unit, ok := h.loadUnit(c)
	if !ok {
		return
	}
	h.enqueue(c, unit, entity.JobTypeUnitGenerate, messaging.JobParams{})
}

// ReviseUnit 排队修订单元正文
// @Summary 修订单元
// @Tags Units
// @Accept json
// @Produce json
// @Param uid path string true "单元 ID"
// @Param body body dto.ReviseUnitRequest true "修订意见"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Failure 409 {object} dto.ErrorResponse "单元尚无正文"
// @Router /api/v1/units/{uid}/revise [post]
func (h *UnitHandler) ReviseUnit(c *gin.Context) {
	var req dto.ReviseUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		dto.BadRequest(c, "instructions are required")
		return
	}

	unit, ok := h.loadUnit(c)
	if !ok {
		return
	}
	if !unit.HasContent() {
		dto.FromError(c, apperrors.New(apperrors.CodeRevisionRejected, "unit has no content to revise").WithDetail(unit.ID))
		return
	}
	h.enqueue(c, unit, entity.JobTypeUnitRevise, messaging.JobParams{Instructions: instructions})
}

func (h *UnitHandler) enqueue(c *gin.Context, unit *entity.Unit, jobType entity.JobType, params messaging.JobParams) {
	ctx := logger.WithBook(c.Request.Context(), unit.BookID, unit.ID)
	j, err := h.enqueuer.Enqueue(ctx, job.EnqueueRequest{
		BookID: unit.BookID,
		UnitID: unit.ID,
		Type:   jobType,
		Params: params,
	})
	if err != nil {
		respondError(c, "failed to enqueue job", err)
		return
	}
	dto.Accepted(c, dto.ToJobResponse(j))
}

func (h *UnitHandler) loadUnit(c *gin.Context) (*entity.Unit, bool) {
	id := dto.BindUnitID(c)
	unit, err := h.units.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to get unit", err)
		return nil, false
	}
	if unit == nil {
		dto.FromError(c, apperrors.New(apperrors.CodeUnitNotFound, "unit not found").WithDetail(id))
		return nil, false
	}
	return unit, true
}

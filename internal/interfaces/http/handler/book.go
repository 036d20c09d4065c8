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

// BookHandler 书籍处理器
type BookHandler struct {
	books    repository.BookRepository
	units    repository.UnitRepository
	jobs     repository.JobRepository
	enqueuer Enqueuer
}

// NewBookHandler 创建书籍处理器
func NewBookHandler(books repository.BookRepository, units repository.UnitRepository, jobs repository.JobRepository, enqueuer Enqueuer) *BookHandler {
	return &BookHandler{books: books, units: units, jobs: jobs, enqueuer: enqueuer}
}

// CreateBook 登记书籍并排队规划
// @Summary 创建书籍
// @Tags Books
// @Accept json
// @Produce json
// @Param body body dto.CreateBookRequest true "主题与参考资料"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Router /api/v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		dto.BadRequest(c, "topic is required")
		return
	}

	refs := make([]string, 0, len(req.References))
	for _, r := range req.References {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, r)
		}
	}

	book := entity.NewBook(topic, refs)
	if err := h.books.Create(ctx, book); err != nil {
		respondError(c, "failed to create book", err)
		return
	}
	ctx = logger.WithBook(ctx, book.ID, "")

	j, err := h.enqueuer.Enqueue(ctx, job.EnqueueRequest{
		BookID: book.ID,
		Type:   entity.JobTypeBookPlan,
		Params: messaging.JobParams{AutoGenerate: req.AutoGenerate},
	})
	if err != nil {
		respondError(c, "failed to enqueue book plan", err)
		return
	}
	dto.Accepted(c, dto.ToJobResponse(j))
}

// GetBook 获取书籍及单元列表
// @Summary 获取书籍
// @Tags Books
// @Produce json
// @Param bid path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.BookResponse]
// @Router /api/v1/books/{bid} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	ctx := c.Request.Context()
	book, ok := h.loadBook(c)
	if !ok {
		return
	}
	units, err := h.units.ListByBook(ctx, book.ID, repository.UnitListOptions{})
	if err != nil {
		respondError(c, "failed to list units", err)
		return
	}
	dto.Success(c, dto.ToBookResponse(book, units))
}

// PlanBook 重新执行调研与结构阶段
// @Summary 规划书籍
// @Tags Books
// @Accept json
// @Produce json
// @Param bid path string true "书籍 ID"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Router /api/v1/books/{bid}/plan [post]
func (h *BookHandler) PlanBook(c *gin.Context) {
	var req dto.PlanBookRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, err.Error())
			return
		}
	}
	h.enqueueForBook(c, entity.JobTypeBookPlan, messaging.JobParams{AutoGenerate: req.AutoGenerate})
}

// GenerateBook 顺序生成全部空单元
// @Summary 生成全书
// @Tags Books
// @Produce json
// @Param bid path string true "书籍 ID"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Router /api/v1/books/{bid}/generate [post]
func (h *BookHandler) GenerateBook(c *gin.Context) {
	h.enqueueForBook(c, entity.JobTypeBookGenerateAll, messaging.JobParams{})
}

// ListBookJobs 书籍任务列表
// @Summary 书籍任务列表
// @Tags Books
// @Produce json
// @Param bid path string true "书籍 ID"
// @Param status query string false "pending|running|completed|failed"
// @Param type query string false "book_plan|unit_generate|unit_revise|book_generate_all"
// @Success 200 {object} dto.Response[dto.JobListResponse]
// @Router /api/v1/books/{bid}/jobs [get]
func (h *BookHandler) ListBookJobs(c *gin.Context) {
	ctx := c.Request.Context()
	book, ok := h.loadBook(c)
	if !ok {
		return
	}
	q, err := dto.BindJobQuery(c)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	result, err := h.jobs.ListByBook(ctx, book.ID, q)
	if err != nil {
		respondError(c, "failed to list jobs", err)
		return
	}
	dto.SuccessWithPage(c, dto.ToJobListResponse(result.Items), dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

func (h *BookHandler) enqueueForBook(c *gin.Context, jobType entity.JobType, params messaging.JobParams) {
	book, ok := h.loadBook(c)
	if !ok {
		return
	}
	ctx := logger.WithBook(c.Request.Context(), book.ID, "")
	j, err := h.enqueuer.Enqueue(ctx, job.EnqueueRequest{BookID: book.ID, Type: jobType, Params: params})
	if err != nil {
		respondError(c, "failed to enqueue job", err)
		return
	}
	dto.Accepted(c, dto.ToJobResponse(j))
}

func (h *BookHandler) loadBook(c *gin.Context) (*entity.Book, bool) {
	id := dto.BindBookID(c)
	book, err := h.books.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to get book", err)
		return nil, false
	}
	if book == nil {
		dto.FromError(c, apperrors.New(apperrors.CodeBookNotFound, "book not found").WithDetail(id))
		return nil, false
	}
	return book, true
}

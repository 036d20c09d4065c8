// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/domain/repository"
	apperrors "z-book-ai-api/pkg/errors"
)

// PageRequest 分页请求参数
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize 规范化分页参数
func (r *PageRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}

// BindPage 从 Gin Context 绑定分页参数
func BindPage(c *gin.Context) PageRequest {
	req := PageRequest{
		Page:     parseIntWithDefault(c.Query("page"), 1),
		PageSize: parseIntWithDefault(c.Query("page_size"), 20),
	}
	req.Normalize()
	return req
}

// BindJobQuery 任务列表的分页与 status/type 过滤，未知取值返回参数错误
func BindJobQuery(c *gin.Context) (repository.JobQuery, error) {
	page := BindPage(c)
	q := repository.JobQuery{
		Status:   entity.JobStatus(c.Query("status")),
		Type:     entity.JobType(c.Query("type")),
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	if q.Status != "" && !q.Status.Valid() {
		return q, apperrors.New(apperrors.CodeInvalidParam, "unknown job status").WithDetail(string(q.Status))
	}
	if q.Type != "" && !q.Type.Valid() {
		return q, apperrors.New(apperrors.CodeInvalidParam, "unknown job type").WithDetail(string(q.Type))
	}
	return q, nil
}

func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// BindBookID 从 URI 绑定书籍 ID
func BindBookID(c *gin.Context) string {
	return c.Param("bid")
}

// BindUnitID 从 URI 绑定单元 ID
func BindUnitID(c *gin.Context) string {
	return c.Param("uid")
}

// BindJobID 从 URI 绑定任务 ID
func BindJobID(c *gin.Context) string {
	return c.Param("jid")
}

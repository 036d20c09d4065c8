// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// Response 成功响应信封
type Response[T any] struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
	Meta      *PageMeta `json:"meta,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ErrorResponse 错误信封，Code 为应用错误码；5xx 不带 Detail
type ErrorResponse struct {
	Code      apperrors.ErrorCode `json:"code"`
	Message   string              `json:"message"`
	Detail    string              `json:"detail,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
	TraceID   string              `json:"trace_id,omitempty"`
}

func respond[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:      status,
		Message:   message,
		Data:      data,
		Meta:      meta,
		RequestID: c.GetString(string(logger.RequestIDKey)),
		TraceID:   c.GetString(string(logger.TraceIDKey)),
	})
}

// Success 200
func Success[T any](c *gin.Context, data T) {
	respond(c, http.StatusOK, "success", data, nil)
}

// SuccessWithPage 200，附分页元数据
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	respond(c, http.StatusOK, "success", data, meta)
}

// Accepted 202，任务已入队
func Accepted[T any](c *gin.Context, data T) {
	respond(c, http.StatusAccepted, "accepted", data, nil)
}

// errorBody 未知错误与 5xx 不向调用方暴露底层信息
func errorBody(c *gin.Context, err error) (int, ErrorResponse) {
	appErr := apperrors.AsAppError(err)
	body := ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: c.GetString(string(logger.RequestIDKey)),
		TraceID:   c.GetString(string(logger.TraceIDKey)),
	}
	switch {
	case appErr.HTTPStatus < http.StatusInternalServerError:
		body.Detail = appErr.Detail
	case appErr.Code == apperrors.CodeUnknown:
		body.Message = "internal server error"
	}
	return appErr.HTTPStatus, body
}

// FromError 按应用错误码写错误响应
func FromError(c *gin.Context, err error) {
	status, body := errorBody(c, err)
	c.JSON(status, body)
}

// Abort 写错误响应并终止后续处理，供中间件使用
func Abort(c *gin.Context, err error) {
	status, body := errorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}

// BadRequest 400，参数错误
func BadRequest(c *gin.Context, message string) {
	FromError(c, apperrors.New(apperrors.CodeInvalidParam, message))
}

// NewPageMeta 创建分页元数据
func NewPageMeta(page, pageSize, total int) *PageMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

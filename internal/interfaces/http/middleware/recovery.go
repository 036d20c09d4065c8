package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/interfaces/http/dto"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// Recovery 捕获 panic。客户端已断开时只记录日志；
// 否则按统一错误信封返回 500，日志带上路径中的书籍/单元/任务 ID
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			ctx := c.Request.Context()

			if brokenPipe(err) {
				logger.Warn(ctx, "client went away", "path", c.Request.URL.Path, "error", err.Error())
				c.Abort()
				return
			}

			logger.Error(ctx, "panic recovered", err,
				"stack", string(debug.Stack()),
				"route", c.FullPath(),
				"method", c.Request.Method,
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			dto.Abort(c, apperrors.New(apperrors.CodeInternalError, "internal server error"))
		}()

		c.Next()
	}
}

func brokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, http.ErrAbortHandler)
}

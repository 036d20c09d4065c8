package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/tracer"
)

// TraceIDHeader 响应中回写的 trace id
const TraceIDHeader = "X-Trace-ID"

// resourceParams 路由参数与日志字段的对应
var resourceParams = []struct {
	param string
	key   logger.ContextKey
}{
	{"bid", logger.BookIDKey},
	{"uid", logger.UnitIDKey},
	{"jid", logger.JobIDKey},
}

// Trace otelgin 追踪，skipPaths（健康检查、指标抓取）不产生 span
func Trace(serviceName string, skipPaths ...string) gin.HandlerFunc {
	traced := otelgin.Middleware(serviceName)
	skip := pathSet(skipPaths)
	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		traced(c)
	}
}

// TraceContext 把 trace/span id 写入日志上下文，并给 span 标上请求 ID
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		sc := span.SpanContext()
		if !sc.IsValid() {
			c.Next()
			return
		}

		traceID := sc.TraceID().String()
		c.Set(string(logger.TraceIDKey), traceID)
		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, traceID)

		if id := c.GetString(string(logger.RequestIDKey)); id != "" {
			span.SetAttributes(attribute.String(string(logger.RequestIDKey), id))
		}
		c.Next()
	}
}

// ResourceContext 路径中的书籍、单元、任务 ID 进入日志上下文与当前 span
func ResourceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		for _, p := range resourceParams {
			v := c.Param(p.param)
			if v == "" {
				continue
			}
			ctx = logger.WithContext(ctx, p.key, v)
		}
		span.SetAttributes(tracer.ContextAttributes(ctx)...)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

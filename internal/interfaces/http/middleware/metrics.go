package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/pkg/metrics"
)

// unmatchedRoute 未命中路由的请求统一归到一个标签，避免按原始路径膨胀
const unmatchedRoute = "unmatched"

// Metrics 按路由模板（如 /api/v1/books/:bid）记录 HTTP 指标；skipPaths 不计入
func Metrics(skipPaths ...string) gin.HandlerFunc {
	skip := pathSet(skipPaths)
	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		if size := c.Request.ContentLength; size > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, route).Observe(float64(size))
		}

		c.Next()

		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}

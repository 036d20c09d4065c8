package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promdto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-book-ai-api/internal/config"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
)

type countingLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = make(map[string]int)
	}
	l.seen[key]++
	return l.seen[key] <= limit, nil
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.POST("/v1/books", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/v1/books/:bid/jobs", func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"book_id":    ctx.Value(logger.BookIDKey),
			"request_id": ctx.Value(logger.RequestIDKey),
		})
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RequestsPerWindow: 2, Window: time.Minute, KeyPrefix: "rl"}

	t.Run("Should reject requests over the window quota", func(t *testing.T) {
		limiter := &countingLimiter{}
		r := newEngine(RateLimit(cfg, limiter))

		assert.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/v1/books", nil).Code)
		assert.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/v1/books", nil).Code)
		w := do(r, http.MethodPost, "/v1/books", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, string(apperrors.CodeTooManyRequests), body(t, w)["code"])

		require.Len(t, limiter.seen, 1)
		for key := range limiter.seen {
			assert.Contains(t, key, "rl:")
			assert.Contains(t, key, ":/v1/books")
		}
	})

	t.Run("Should let traffic through when the limiter fails", func(t *testing.T) {
		r := newEngine(RateLimit(cfg, &countingLimiter{err: errors.New("redis down")}))
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/v1/books", nil).Code)
		}
	})

	t.Run("Should be a no-op when disabled", func(t *testing.T) {
		limiter := &countingLimiter{}
		r := newEngine(RateLimit(config.RateLimitConfig{}, limiter))
		do(r, http.MethodPost, "/v1/books", nil)
		assert.Empty(t, limiter.seen)
	})
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	t.Run("Should echo an incoming request id", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/books", map[string]string{RequestIDHeader: "req-1"})
		assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	})

	t.Run("Should generate a request id when missing", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/books", nil)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("Should replace an oversized or unprintable request id", func(t *testing.T) {
		for _, id := range []string{strings.Repeat("x", 65), "a b"} {
			w := do(r, http.MethodPost, "/v1/books", map[string]string{RequestIDHeader: id})
			got := w.Header().Get(RequestIDHeader)
			assert.NotEqual(t, id, got)
			assert.Len(t, got, 36)
		}
	})
}

func TestResourceContext(t *testing.T) {
	t.Run("Should put the book id and request id into the request context", func(t *testing.T) {
		r := newEngine(RequestID(), ResourceContext())
		w := do(r, http.MethodGet, "/v1/books/b-42/jobs", map[string]string{RequestIDHeader: "req-9"})
		require.Equal(t, http.StatusOK, w.Code)
		got := body(t, w)
		assert.Equal(t, "b-42", got["book_id"])
		assert.Equal(t, "req-9", got["request_id"])
	})
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m promdto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	t.Run("Should label by route template and skip ops paths", func(t *testing.T) {
		r := newEngine(Metrics("/health"))
		jobs := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/books/:bid/jobs", "200")
		health := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
		beforeJobs, beforeHealth := counterValue(t, jobs), counterValue(t, health)

		do(r, http.MethodGet, "/v1/books/b1/jobs", nil)
		do(r, http.MethodGet, "/v1/books/b2/jobs", nil)
		do(r, http.MethodGet, "/health", nil)

		assert.Equal(t, beforeJobs+2, counterValue(t, jobs))
		assert.Equal(t, beforeHealth, counterValue(t, health))
	})
}

func TestRecovery(t *testing.T) {
	t.Run("Should turn a panic into a 500", func(t *testing.T) {
		r := newEngine(Recovery(), RequestID())
		w := do(r, http.MethodGet, "/panic", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		got := body(t, w)
		assert.Equal(t, "internal server error", got["message"])
		assert.Equal(t, string(apperrors.CodeInternalError), got["code"])
		assert.NotContains(t, w.Body.String(), "boom")
		assert.NotEmpty(t, got["request_id"])
	})
}

// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"z-book-ai-api/internal/config"
	"z-book-ai-api/internal/interfaces/http/handler"
	"z-book-ai-api/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health *handler.HealthHandler
	Book   *handler.BookHandler
	Unit   *handler.UnitHandler
	Job    *handler.JobHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	limiter  middleware.RateLimiter
	handlers Handlers
}

// New 创建新的路由器；limiter 为 nil 时不限流
func New(cfg *config.Config, handlers Handlers, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		limiter:  limiter,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// opsPaths 探活与指标抓取，不进入追踪与 HTTP 指标
func (r *Router) opsPaths() []string {
	return []string{"/health", "/ready", "/live", r.cfg.Observability.Metrics.Path}
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, r.opsPaths()...))
		r.engine.Use(middleware.TraceContext())
	}
	r.engine.Use(middleware.ResourceContext())

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(r.opsPaths()...))
	}
}

func (r *Router) setupRoutes() {
	if h := r.handlers.Health; h != nil {
		r.engine.GET("/health", h.Health)
		r.engine.GET("/ready", h.Ready)
		r.engine.GET("/live", h.Live)
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	if r.handlers.Book == nil || r.handlers.Unit == nil || r.handlers.Job == nil {
		return
	}
	v1 := r.engine.Group("/api/v1")
	RegisterV1Routes(v1, middleware.RateLimit(r.cfg.Server.HTTP.RateLimit, r.limiter), r.handlers)
}

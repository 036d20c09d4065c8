package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由；limit 只作用于会触发模型调用的入队接口
func RegisterV1Routes(v1 *gin.RouterGroup, limit gin.HandlerFunc, h Handlers) {
	books := v1.Group("/books")
	{
		books.POST("", limit, h.Book.CreateBook)
		books.GET("/:bid", h.Book.GetBook)
		books.POST("/:bid/plan", limit, h.Book.PlanBook)
		books.POST("/:bid/generate", limit, h.Book.GenerateBook)
		books.GET("/:bid/jobs", h.Book.ListBookJobs)
	}

	units := v1.Group("/units")
	{
		units.GET("/:uid", h.Unit.GetUnit)
		units.POST("/:uid/generate", limit, h.Unit.GenerateUnit)
		units.POST("/:uid/revise", limit, h.Unit.ReviseUnit)
	}

	jobs := v1.Group("/jobs")
	{
		jobs.GET("/:jid", h.Job.GetJob)
	}
}

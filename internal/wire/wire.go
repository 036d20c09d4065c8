//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"z-book-ai-api/internal/application/book"
	"z-book-ai-api/internal/application/job"
	"z-book-ai-api/internal/config"
	"z-book-ai-api/internal/domain/repository"
	"z-book-ai-api/internal/infrastructure/llm"
	"z-book-ai-api/internal/infrastructure/messaging"
	"z-book-ai-api/internal/infrastructure/persistence/postgres"
	"z-book-ai-api/internal/infrastructure/persistence/redis"
	"z-book-ai-api/internal/interfaces/http/handler"
	"z-book-ai-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 worker：队列消费、流水线与 HTTP 接口
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		PipelineSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewBookRepository,
	postgres.NewUnitRepository,
	postgres.NewJobRepository,
	postgres.NewLLMUsageEventRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.BookRepository), new(*postgres.BookRepository)),
	wire.Bind(new(repository.UnitRepository), new(*postgres.UnitRepository)),
	wire.Bind(new(repository.JobRepository), new(*postgres.JobRepository)),
	wire.Bind(new(repository.LLMUsageEventRepository), new(*postgres.LLMUsageEventRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideDocumentLocker,
	wire.Bind(new(llm.WindowLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	ProvideConsumer,
	wire.Bind(new(job.Publisher), new(*messaging.Producer)),
)

// PipelineSet 生成流水线与任务执行
var PipelineSet = wire.NewSet(
	llm.NewEinoFactory,
	llm.NewProviderThrottle,
	ProvideGenerationChain,
	ProvideOrchestrator,
	ProvideTokenBudgetChecker,
	job.NewDispatcher,
	job.NewRunner,
	wire.Bind(new(job.Pipeline), new(*book.Orchestrator)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewBookHandler,
	handler.NewUnitHandler,
	handler.NewJobHandler,
	wire.Bind(new(handler.Enqueuer), new(*job.Dispatcher)),
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouter,
)

// Package wire 提供依赖注入配置
package wire

import (
	"os"
	"strings"

	"z-book-ai-api/internal/application/book"
	"z-book-ai-api/internal/application/job"
	"z-book-ai-api/internal/application/quota"
	"z-book-ai-api/internal/config"
	"z-book-ai-api/internal/domain/repository"
	"z-book-ai-api/internal/infrastructure/llm"
	"z-book-ai-api/internal/infrastructure/messaging"
	"z-book-ai-api/internal/infrastructure/persistence/postgres"
	"z-book-ai-api/internal/infrastructure/persistence/redis"
	"z-book-ai-api/internal/interfaces/http/handler"
	"z-book-ai-api/internal/interfaces/http/router"
	"z-book-ai-api/internal/workflow/chain"
)

// App worker 进程的依赖容器
type App struct {
	Config     *config.Config
	Router     *router.Router
	Consumer   *messaging.Consumer
	Runner     *job.Runner
	Dispatcher *job.Dispatcher
	Cache      *redis.Cache
}

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient     *postgres.Client
	TxManager    *postgres.TxManager
	BookRepo     *postgres.BookRepository
	UnitRepo     *postgres.UnitRepository
	JobRepo      *postgres.JobRepository
	LLMUsageRepo *postgres.LLMUsageEventRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres, cfg.Observability.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideConsumer 生成队列消费者，消费者名取主机名
func ProvideConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamBookGen,
		Group:         messaging.ConsumerGroupBookWorker.WithPrefix(rs.ConsumerGroupPrefix),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(rs.RetryBackoff),
	})
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return "book-worker"
	}
	return "book-worker-" + host
}

// ProvideDocumentLocker 参考文献合并用的跨进程按书锁
func ProvideDocumentLocker(redisClient *redis.Client, cfg *config.Config) *redis.DocumentLocker {
	return redis.NewDocumentLocker(redisClient, cfg.Pipeline.ReferenceLockTTL)
}

// ProvideGenerationChain 带跨进程配额的模型调用链
func ProvideGenerationChain(factory *llm.EinoFactory, throttle *llm.ProviderThrottle) *chain.GenerationChain {
	return chain.NewGenerationChain(factory, chain.WithThrottle(throttle))
}

// ProvideOrchestrator 书籍生成流水线
func ProvideOrchestrator(
	cfg *config.Config,
	gen *chain.GenerationChain,
	books repository.BookRepository,
	units repository.UnitRepository,
	tx repository.Transactor,
	cache *redis.Cache,
	locker *redis.DocumentLocker,
) *book.Orchestrator {
	return book.NewOrchestrator(gen, books, units, book.SettingsFromConfig(cfg),
		book.WithTransactor(tx),
		book.WithResearchCache(cache),
		book.WithLocker(locker),
	)
}

// ProvideTokenBudgetChecker 书籍级 token 预算
func ProvideTokenBudgetChecker(usage repository.LLMUsageEventRepository, cfg *config.Config) *quota.TokenBudgetChecker {
	return quota.NewTokenBudgetChecker(usage, cfg.Pipeline.BookTokenBudget)
}

// ProvideHealthHandler 就绪检查依赖 postgres 与 redis
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, pg, rc)
}

// ProvideRouter 提供 HTTP 路由器
func ProvideRouter(cfg *config.Config, handlers router.Handlers, limiter *redis.RateLimiter) *router.Router {
	return router.New(cfg, handlers, limiter)
}

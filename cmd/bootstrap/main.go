package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"z-book-ai-api/internal/application/job"
	"z-book-ai-api/internal/config"
	"z-book-ai-api/internal/domain/entity"
	"z-book-ai-api/internal/infrastructure/messaging"
	"z-book-ai-api/internal/infrastructure/persistence/redis"
	"z-book-ai-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层并建表
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	if err := dataLayer.PgClient.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated.")

	purge := os.Getenv("BOOTSTRAP_PURGE_RESEARCH_CACHE") == "true"
	topic := strings.TrimSpace(os.Getenv("BOOTSTRAP_TOPIC"))
	if !purge && topic == "" {
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer func() { _ = redisClient.Close() }()

	// 3. 清空调研缓存（模型或提示词变更后）
	if purge {
		n, err := redis.NewCache(redisClient).InvalidateResearch(ctx)
		if err != nil {
			log.Fatalf("failed to purge research cache: %v", err)
		}
		fmt.Printf("Purged %d research cache entries.\n", n)
	}

	// 4. 登记首本书并排队规划
	if topic != "" {
		var refs []string
		for _, r := range strings.Split(os.Getenv("BOOTSTRAP_REFERENCES"), ";") {
			if r = strings.TrimSpace(r); r != "" {
				refs = append(refs, r)
			}
		}
		book := entity.NewBook(topic, refs)
		if err := dataLayer.BookRepo.Create(ctx, book); err != nil {
			log.Fatalf("failed to create book: %v", err)
		}

		producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
		dispatcher := job.NewDispatcher(dataLayer.JobRepo, producer)
		j, err := dispatcher.Enqueue(ctx, job.EnqueueRequest{
			BookID: book.ID,
			Type:   entity.JobTypeBookPlan,
			Params: messaging.JobParams{AutoGenerate: os.Getenv("BOOTSTRAP_AUTO_GENERATE") == "true"},
		})
		if err != nil {
			log.Fatalf("failed to enqueue book plan: %v", err)
		}
		fmt.Printf("Book %s created, plan job %s enqueued.\n", book.ID, j.ID)
	}

	fmt.Println("Bootstrap completed successfully.")
}

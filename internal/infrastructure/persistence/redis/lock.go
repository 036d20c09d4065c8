package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockRetry = 50 * time.Millisecond
)

// 只释放自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DocumentLocker 基于 SET NX PX 的分布式互斥锁，按文档串行化读改写
type DocumentLocker struct {
	client  *Client
	ttl     time.Duration
	retry   time.Duration
	maxWait time.Duration
}

// LockerOption 锁配置项
type LockerOption func(*DocumentLocker)

// WithLockRetry 设置获取锁的重试间隔
func WithLockRetry(d time.Duration) LockerOption {
	return func(l *DocumentLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithLockMaxWait 设置最长等待时间，默认等于 TTL
func WithLockMaxWait(d time.Duration) LockerOption {
	return func(l *DocumentLocker) {
		if d > 0 {
			l.maxWait = d
		}
	}
}

// NewDocumentLocker 创建文档锁，ttl 为锁的自动过期时间
func NewDocumentLocker(client *Client, ttl time.Duration, opts ...LockerOption) *DocumentLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	l := &DocumentLocker{client: client, ttl: ttl, retry: defaultLockRetry, maxWait: ttl}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock 获取锁，返回释放函数；等待超时返回 CodeLockBusy
func (l *DocumentLocker) Lock(ctx context.Context, key string) (func(), error) {
	ctx, span := tracer.Start(ctx, "redis.Lock",
		trace.WithAttributes(attribute.String("redis.key", key)))
	defer span.End()

	lockKey := "lock:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.maxWait)

	for attempt := 0; ; attempt++ {
		ok, err := l.client.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			span.RecordError(err)
			return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire lock")
		}
		if ok {
			span.SetAttributes(attribute.Int("redis.lock_attempts", attempt+1))
			return l.releaser(lockKey, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, apperrors.New(apperrors.CodeLockBusy, "document lock busy").WithDetail(key)
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *DocumentLocker) releaser(lockKey, token string) func() {
	return func() {
		// 调用方的 ctx 可能已取消，释放使用独立超时
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client.rdb, []string{lockKey}, token).Err(); err != nil {
			logger.Warn(ctx, "failed to release lock", "key", lockKey, "error", err.Error())
		}
	}
}

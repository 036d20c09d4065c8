// Package quota 提供书籍级 token 预算与用量流水
package quota

import (
	"context"
	"fmt"

	"z-book-ai-api/internal/domain/repository"
	apperrors "z-book-ai-api/pkg/errors"
)

// TokenBudgetExceededError 书籍累计 token 已达预算
type TokenBudgetExceededError struct {
	BookID string
	Max    int64
	Used   int64
}

func (e TokenBudgetExceededError) Error() string {
	return fmt.Sprintf("token budget exceeded: book=%s used=%d max=%d", e.BookID, e.Used, e.Max)
}

// AppCode 预算耗尽属于业务拒绝，重试没有意义
func (e TokenBudgetExceededError) AppCode() apperrors.ErrorCode {
	return apperrors.CodeBudgetExceeded
}

// TokenBudgetChecker 检查书籍的 token 预算
type TokenBudgetChecker struct {
	usageRepo repository.LLMUsageEventRepository
	max       int64
}

// NewTokenBudgetChecker max <= 0 表示不限
func NewTokenBudgetChecker(usageRepo repository.LLMUsageEventRepository, max int64) *TokenBudgetChecker {
	return &TokenBudgetChecker{usageRepo: usageRepo, max: max}
}

// Check 返回已用量；超出预算时返回 TokenBudgetExceededError
func (c *TokenBudgetChecker) Check(ctx context.Context, bookID string) (int64, error) {
	if c == nil || c.max <= 0 || c.usageRepo == nil {
		return 0, nil
	}
	used, err := c.usageRepo.SumTokensByBook(ctx, bookID)
	if err != nil {
		return 0, err
	}
	if used >= c.max {
		return used, TokenBudgetExceededError{BookID: bookID, Max: c.max, Used: used}
	}
	return used, nil
}

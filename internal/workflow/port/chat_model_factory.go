// Package port 定义工作流层对外部能力的最小依赖
package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 按提供商名称获取 ChatModel，空名称表示默认提供商
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// CallThrottle 按提供商限制调用速率，Wait 阻塞直到可以调用
type CallThrottle interface {
	Wait(ctx context.Context, provider string) error
}

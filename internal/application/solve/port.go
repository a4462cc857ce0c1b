// Package solve 实现试卷解答工作流
package solve

import (
	"context"

	"qp-solver-api/internal/domain/entity"
)

// DocumentModel 定义工作流对远端生成服务的最小依赖 (port)
// 三个操作各自只会被调用一次，不做重试
type DocumentModel interface {
	// Upload 上传本地文件，返回远端文件引用
	Upload(ctx context.Context, localPath, displayName string) (entity.RemoteHandle, error)
	// Generate 基于已上传文件与提示词生成文本
	// 无论远端是否流式返回，统一以 ChunkStream 形式交付
	Generate(ctx context.Context, prompt string, handle entity.RemoteHandle, stream bool) (ChunkStream, error)
	// Delete 删除远端文件，尽力而为
	Delete(ctx context.Context, handle entity.RemoteHandle) error
}

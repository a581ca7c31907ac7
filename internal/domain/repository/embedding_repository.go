package repository

import (
	"context"

	"echoes-index-api/internal/domain/entity"
)

// EmbeddingRepository 向量行仓储接口
type EmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.Embedding) error
	// DeleteByChapter 删除章节拥有的全部向量行；对无向量的章节为空操作
	DeleteByChapter(ctx context.Context, chapterID string) error
	// ListAll 返回全部向量行，保持插入顺序
	ListAll(ctx context.Context) ([]*entity.Embedding, error)
	// ListByChapter 返回指定章节的向量行
	ListByChapter(ctx context.Context, chapterID string) ([]*entity.Embedding, error)
}

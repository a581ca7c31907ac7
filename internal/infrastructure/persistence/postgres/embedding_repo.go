package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"echoes-index-api/internal/domain/entity"
)

// EmbeddingRepository 向量行仓储实现
type EmbeddingRepository struct {
	client *Client
}

// NewEmbeddingRepository 创建向量行仓储
func NewEmbeddingRepository(client *Client) *EmbeddingRepository {
	return &EmbeddingRepository{client: client}
}

// Create 创建向量行
func (r *EmbeddingRepository) Create(ctx context.Context, embedding *entity.Embedding) error {
	ctx, span := tracer.Start(ctx, "postgres.EmbeddingRepository.Create")
	defer span.End()

	if embedding.ID == "" {
		embedding.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(embedding).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create embedding: %w", err)
	}
	return nil
}

// DeleteByChapter 删除章节拥有的全部向量行；无匹配时为空操作
func (r *EmbeddingRepository) DeleteByChapter(ctx context.Context, chapterID string) error {
	ctx, span := tracer.Start(ctx, "postgres.EmbeddingRepository.DeleteByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Embedding{}, "chapter_id = ?", chapterID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// ListAll 返回全部向量行，按插入顺序
func (r *EmbeddingRepository) ListAll(ctx context.Context) ([]*entity.Embedding, error) {
	ctx, span := tracer.Start(ctx, "postgres.EmbeddingRepository.ListAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var embeddings []*entity.Embedding
	if err := db.Order("created_at ASC, id ASC").Find(&embeddings).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	return embeddings, nil
}

// ListByChapter 返回指定章节的向量行
func (r *EmbeddingRepository) ListByChapter(ctx context.Context, chapterID string) ([]*entity.Embedding, error) {
	ctx, span := tracer.Start(ctx, "postgres.EmbeddingRepository.ListByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var embeddings []*entity.Embedding
	if err := db.Where("chapter_id = ?", chapterID).Order("created_at ASC").Find(&embeddings).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapter embeddings: %w", err)
	}
	return embeddings, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"echoes-index-api/internal/domain/entity"
)

// EpisodeRepository 集仓储实现
type EpisodeRepository struct {
	client *Client
}

// NewEpisodeRepository 创建集仓储
func NewEpisodeRepository(client *Client) *EpisodeRepository {
	return &EpisodeRepository{client: client}
}

// Create 创建集
func (r *EpisodeRepository) Create(ctx context.Context, episode *entity.Episode) error {
	ctx, span := tracer.Start(ctx, "postgres.EpisodeRepository.Create")
	defer span.End()

	if episode.ID == "" {
		episode.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(episode).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create episode: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取集
func (r *EpisodeRepository) GetByID(ctx context.Context, id string) (*entity.Episode, error) {
	ctx, span := tracer.Start(ctx, "postgres.EpisodeRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var episode entity.Episode
	if err := db.First(&episode, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}
	return &episode, nil
}

// GetByArcAndNumber 按自然键获取集
func (r *EpisodeRepository) GetByArcAndNumber(ctx context.Context, arcID string, number int) (*entity.Episode, error) {
	ctx, span := tracer.Start(ctx, "postgres.EpisodeRepository.GetByArcAndNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var episode entity.Episode
	if err := db.First(&episode, "arc_id = ? AND number = ?", arcID, number).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get episode by natural key: %w", err)
	}
	return &episode, nil
}

// ListByArc 获取故事弧下的全部集
func (r *EpisodeRepository) ListByArc(ctx context.Context, arcID string) ([]*entity.Episode, error) {
	ctx, span := tracer.Start(ctx, "postgres.EpisodeRepository.ListByArc")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var episodes []*entity.Episode
	if err := db.Where("arc_id = ?", arcID).Order("number ASC").Find(&episodes).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	return episodes, nil
}

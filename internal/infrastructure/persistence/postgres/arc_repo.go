package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"echoes-index-api/internal/domain/entity"
)

// ArcRepository 故事弧仓储实现
type ArcRepository struct {
	client *Client
}

// NewArcRepository 创建故事弧仓储
func NewArcRepository(client *Client) *ArcRepository {
	return &ArcRepository{client: client}
}

// Create 创建故事弧
func (r *ArcRepository) Create(ctx context.Context, arc *entity.Arc) error {
	ctx, span := tracer.Start(ctx, "postgres.ArcRepository.Create")
	defer span.End()

	if arc.ID == "" {
		arc.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(arc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create arc: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取故事弧
func (r *ArcRepository) GetByID(ctx context.Context, id string) (*entity.Arc, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArcRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var arc entity.Arc
	if err := db.First(&arc, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get arc: %w", err)
	}
	return &arc, nil
}

// GetByTimelineAndName 按自然键获取故事弧
func (r *ArcRepository) GetByTimelineAndName(ctx context.Context, timelineID, name string) (*entity.Arc, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArcRepository.GetByTimelineAndName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var arc entity.Arc
	if err := db.First(&arc, "timeline_id = ? AND name = ?", timelineID, name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get arc by natural key: %w", err)
	}
	return &arc, nil
}

// GetByName 在所有时间线中按名称获取第一个匹配的故事弧
func (r *ArcRepository) GetByName(ctx context.Context, name string) (*entity.Arc, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArcRepository.GetByName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var arc entity.Arc
	if err := db.Order("created_at ASC").First(&arc, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get arc by name: %w", err)
	}
	return &arc, nil
}

// ListByTimeline 获取时间线下的全部故事弧
func (r *ArcRepository) ListByTimeline(ctx context.Context, timelineID string) ([]*entity.Arc, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArcRepository.ListByTimeline")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var arcs []*entity.Arc
	if err := db.Where("timeline_id = ?", timelineID).Order(`"order" ASC`).Find(&arcs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list arcs: %w", err)
	}
	return arcs, nil
}

// CountByTimeline 统计时间线下的故事弧数量
func (r *ArcRepository) CountByTimeline(ctx context.Context, timelineID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArcRepository.CountByTimeline")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Arc{}).Where("timeline_id = ?", timelineID).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count arcs: %w", err)
	}
	return count, nil
}

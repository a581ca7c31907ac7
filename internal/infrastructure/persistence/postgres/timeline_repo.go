// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"echoes-index-api/internal/domain/entity"
)

// TimelineRepository 时间线仓储实现
type TimelineRepository struct {
	client *Client
}

// NewTimelineRepository 创建时间线仓储
func NewTimelineRepository(client *Client) *TimelineRepository {
	return &TimelineRepository{client: client}
}

// Create 创建时间线
func (r *TimelineRepository) Create(ctx context.Context, timeline *entity.Timeline) error {
	ctx, span := tracer.Start(ctx, "postgres.TimelineRepository.Create")
	defer span.End()

	if timeline.ID == "" {
		timeline.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(timeline).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create timeline: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取时间线
func (r *TimelineRepository) GetByID(ctx context.Context, id string) (*entity.Timeline, error) {
	ctx, span := tracer.Start(ctx, "postgres.TimelineRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var timeline entity.Timeline
	if err := db.First(&timeline, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}
	return &timeline, nil
}

// GetByName 按自然键获取时间线
func (r *TimelineRepository) GetByName(ctx context.Context, name string) (*entity.Timeline, error) {
	ctx, span := tracer.Start(ctx, "postgres.TimelineRepository.GetByName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var timeline entity.Timeline
	if err := db.First(&timeline, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get timeline by name: %w", err)
	}
	return &timeline, nil
}

// List 获取全部时间线
func (r *TimelineRepository) List(ctx context.Context) ([]*entity.Timeline, error) {
	ctx, span := tracer.Start(ctx, "postgres.TimelineRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var timelines []*entity.Timeline
	if err := db.Order("name ASC").Find(&timelines).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list timelines: %w", err)
	}
	return timelines, nil
}

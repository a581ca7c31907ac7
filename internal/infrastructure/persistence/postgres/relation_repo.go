package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
)

// RelationRepository 关系仓储实现
type RelationRepository struct {
	client *Client
}

// NewRelationRepository 创建关系仓储
func NewRelationRepository(client *Client) *RelationRepository {
	return &RelationRepository{client: client}
}

// Create 创建关系
func (r *RelationRepository) Create(ctx context.Context, rel *entity.Relation) error {
	ctx, span := tracer.Start(ctx, "postgres.RelationRepository.Create")
	defer span.End()

	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(rel).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create relation: %w", err)
	}
	return nil
}

// Update 更新关系
func (r *RelationRepository) Update(ctx context.Context, rel *entity.Relation) error {
	ctx, span := tracer.Start(ctx, "postgres.RelationRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(rel).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update relation: %w", err)
	}
	return nil
}

// applyRelationFilter 应用关系过滤条件
func applyRelationFilter(query *gorm.DB, filter *repository.RelationFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.Entity != "" {
		query = query.Where("source_entity = ? OR target_entity = ?", filter.Entity, filter.Entity)
	}
	if filter.Source != "" {
		query = query.Where("source_entity = ?", filter.Source)
	}
	if filter.Target != "" {
		query = query.Where("target_entity = ?", filter.Target)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	return query
}

// ListByArc 返回故事弧作用域内的关系
func (r *RelationRepository) ListByArc(ctx context.Context, arc string, filter *repository.RelationFilter) ([]*entity.Relation, error) {
	ctx, span := tracer.Start(ctx, "postgres.RelationRepository.ListByArc")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Where("arc = ?", arc)
	query = applyRelationFilter(query, filter)

	var relations []*entity.Relation
	if err := query.Order("created_at ASC, id ASC").Find(&relations).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	return relations, nil
}

// ListPaged 分页查询关系
func (r *RelationRepository) ListPaged(ctx context.Context, arc string, filter *repository.RelationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Relation], error) {
	ctx, span := tracer.Start(ctx, "postgres.RelationRepository.ListPaged")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Relation{})
	if arc != "" {
		query = query.Where("arc = ?", arc)
	}
	query = applyRelationFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count relations: %w", err)
	}

	var relations []*entity.Relation
	if err := query.Order("created_at ASC, id ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&relations).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}

	return repository.NewPagedResult(relations, total, pagination), nil
}

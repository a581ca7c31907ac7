package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
)

// EntityRepository 故事实体仓储实现
type EntityRepository struct {
	client *Client
}

// NewEntityRepository 创建故事实体仓储
func NewEntityRepository(client *Client) *EntityRepository {
	return &EntityRepository{client: client}
}

// Create 创建故事实体
func (r *EntityRepository) Create(ctx context.Context, ent *entity.StoryEntity) error {
	ctx, span := tracer.Start(ctx, "postgres.EntityRepository.Create")
	defer span.End()

	if ent.ID == "" {
		ent.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(ent).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// Update 更新故事实体
func (r *EntityRepository) Update(ctx context.Context, ent *entity.StoryEntity) error {
	ctx, span := tracer.Start(ctx, "postgres.EntityRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(ent).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update entity: %w", err)
	}
	return nil
}

// GetByNaturalKey 按 (arc, type, name) 获取故事实体
func (r *EntityRepository) GetByNaturalKey(ctx context.Context, arc string, entityType entity.StoryEntityType, name string) (*entity.StoryEntity, error) {
	ctx, span := tracer.Start(ctx, "postgres.EntityRepository.GetByNaturalKey")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var ent entity.StoryEntity
	if err := db.First(&ent, "arc = ? AND type = ? AND name = ?", arc, entityType, name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get entity by natural key: %w", err)
	}
	return &ent, nil
}

// applyEntityFilter 应用实体过滤条件
func applyEntityFilter(query *gorm.DB, filter *repository.EntityFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Name != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	return query
}

// ListByArc 返回故事弧作用域内的实体
func (r *EntityRepository) ListByArc(ctx context.Context, arc string, filter *repository.EntityFilter) ([]*entity.StoryEntity, error) {
	ctx, span := tracer.Start(ctx, "postgres.EntityRepository.ListByArc")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Where("arc = ?", arc)
	query = applyEntityFilter(query, filter)

	var entities []*entity.StoryEntity
	if err := query.Order("type ASC, name ASC").Find(&entities).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, nil
}

// SearchByName 按名称或别名模糊搜索实体
func (r *EntityRepository) SearchByName(ctx context.Context, arc, name string, limit int) ([]*entity.StoryEntity, error) {
	ctx, span := tracer.Start(ctx, "postgres.EntityRepository.SearchByName")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}

	db := getDB(ctx, r.client.db)
	query := db.Where("name ILIKE ? OR ? ILIKE ANY(aliases)", "%"+name+"%", name)
	if arc != "" {
		query = query.Where("arc = ?", arc)
	}

	var entities []*entity.StoryEntity
	if err := query.Order("chapter_count DESC, name ASC").Limit(limit).Find(&entities).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search entities: %w", err)
	}
	return entities, nil
}

// ListPaged 分页查询实体
func (r *EntityRepository) ListPaged(ctx context.Context, arc string, filter *repository.EntityFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.StoryEntity], error) {
	ctx, span := tracer.Start(ctx, "postgres.EntityRepository.ListPaged")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.StoryEntity{})
	if arc != "" {
		query = query.Where("arc = ?", arc)
	}
	query = applyEntityFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}

	var entities []*entity.StoryEntity
	if err := query.Order("type ASC, name ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&entities).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return repository.NewPagedResult(entities, total, pagination), nil
}

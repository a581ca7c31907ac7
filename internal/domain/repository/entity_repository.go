package repository

import (
	"context"

	"echoes-index-api/internal/domain/entity"
)

// EntityFilter 实体查询过滤条件
type EntityFilter struct {
	Type entity.StoryEntityType
	Name string
}

// EntityRepository 故事实体仓储接口
type EntityRepository interface {
	Create(ctx context.Context, ent *entity.StoryEntity) error
	Update(ctx context.Context, ent *entity.StoryEntity) error
	// GetByNaturalKey 按 (arc, type, name) 查询；未找到时返回 (nil, nil)
	GetByNaturalKey(ctx context.Context, arc string, entityType entity.StoryEntityType, name string) (*entity.StoryEntity, error)
	// ListByArc 返回故事弧作用域内的实体
	ListByArc(ctx context.Context, arc string, filter *EntityFilter) ([]*entity.StoryEntity, error)
	// SearchByName 按名称模糊搜索
	SearchByName(ctx context.Context, arc, name string, limit int) ([]*entity.StoryEntity, error)
	// ListPaged 分页查询
	ListPaged(ctx context.Context, arc string, filter *EntityFilter, pagination Pagination) (*PagedResult[*entity.StoryEntity], error)
}

// RelationFilter 关系查询过滤条件
type RelationFilter struct {
	Entity string // 匹配 source 或 target
	Source string
	Target string
	Type   entity.RelationType
}

// RelationRepository 关系仓储接口
type RelationRepository interface {
	Create(ctx context.Context, rel *entity.Relation) error
	Update(ctx context.Context, rel *entity.Relation) error
	// ListByArc 返回故事弧作用域内的关系
	ListByArc(ctx context.Context, arc string, filter *RelationFilter) ([]*entity.Relation, error)
	// ListPaged 分页查询
	ListPaged(ctx context.Context, arc string, filter *RelationFilter, pagination Pagination) (*PagedResult[*entity.Relation], error)
}

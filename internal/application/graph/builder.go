// Package graph 提供实体关系图的构建、过滤与导出
package graph

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
)

var tracer = otel.Tracer("graph")

// Graph 实体关系图
type Graph struct {
	Nodes []*entity.StoryEntity `json:"nodes"`
	Edges []*entity.Relation    `json:"edges"`
}

// FilterOptions 图过滤条件
type FilterOptions struct {
	// EntityTypes 保留的实体类型；空表示不过滤
	EntityTypes []entity.StoryEntityType
	// RelationTypes 保留的关系类型；空表示不过滤
	RelationTypes []entity.RelationType
	// Characters 按名称精确保留的节点；空表示不过滤
	Characters []string
}

// Builder 图构建器
type Builder struct {
	entities  repository.EntityRepository
	relations repository.RelationRepository
}

// NewBuilder 创建图构建器
func NewBuilder(entities repository.EntityRepository, relations repository.RelationRepository) *Builder {
	return &Builder{entities: entities, relations: relations}
}

// BuildGraph 读取故事弧作用域内的全部实体与关系
func (b *Builder) BuildGraph(ctx context.Context, arc string) (*Graph, error) {
	ctx, span := tracer.Start(ctx, "graph.Builder.BuildGraph",
		trace.WithAttributes(attribute.String("arc", arc)))
	defer span.End()

	nodes, err := b.entities.ListByArc(ctx, arc, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}

	edges, err := b.relations.ListByArc(ctx, arc, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load relations: %w", err)
	}

	span.SetAttributes(
		attribute.Int("graph.nodes", len(nodes)),
		attribute.Int("graph.edges", len(edges)),
	)
	return &Graph{Nodes: nodes, Edges: edges}, nil
}

// FilterGraph 按类型和名称过滤图
// 被节点过滤移除的节点所引用的边一并删除，保证无悬挂边
func FilterGraph(g *Graph, opts FilterOptions) *Graph {
	typeSet := make(map[entity.StoryEntityType]struct{}, len(opts.EntityTypes))
	for _, t := range opts.EntityTypes {
		typeSet[t] = struct{}{}
	}
	nameSet := make(map[string]struct{}, len(opts.Characters))
	for _, n := range opts.Characters {
		nameSet[n] = struct{}{}
	}
	relSet := make(map[entity.RelationType]struct{}, len(opts.RelationTypes))
	for _, t := range opts.RelationTypes {
		relSet[t] = struct{}{}
	}

	kept := make(map[string]struct{})
	filtered := &Graph{}

	for _, node := range g.Nodes {
		if len(typeSet) > 0 {
			if _, ok := typeSet[node.Type]; !ok {
				continue
			}
		}
		if len(nameSet) > 0 {
			if _, ok := nameSet[node.Name]; !ok {
				continue
			}
		}
		filtered.Nodes = append(filtered.Nodes, node)
		kept[node.Name] = struct{}{}
	}

	for _, edge := range g.Edges {
		if len(relSet) > 0 {
			if _, ok := relSet[edge.Type]; !ok {
				continue
			}
		}
		if _, ok := kept[edge.SourceEntity]; !ok {
			continue
		}
		if _, ok := kept[edge.TargetEntity]; !ok {
			continue
		}
		filtered.Edges = append(filtered.Edges, edge)
	}

	return filtered
}

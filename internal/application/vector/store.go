// Package vector 提供应用层向量存取和相似度检索
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
)

var tracer = otel.Tracer("vector")

// Store 向量存储
// 相似度在应用层计算，不依赖后端存储的向量索引能力
type Store struct {
	embeddings repository.EmbeddingRepository
}

// NewStore 创建向量存储
func NewStore(embeddings repository.EmbeddingRepository) *Store {
	return &Store{embeddings: embeddings}
}

// SearchOptions 检索过滤条件
type SearchOptions struct {
	// Characters 角色过滤列表；空表示不过滤
	Characters []string
	// AllCharacters true 要求全部角色出现（AND），false 要求任一出现（OR）
	AllCharacters bool
	// Metadata 元数据精确匹配过滤；在排序前应用
	Metadata map[string]string
	// Limit 返回结果上限，默认 10
	Limit int
}

// Match 检索命中结果
type Match struct {
	Embedding  *entity.Embedding
	Similarity float64
}

// Insert 持久化一条向量行，返回生成的 id
func (s *Store) Insert(ctx context.Context, chapterID, content string, vec []float32, characters []string, metadata map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "vector.Store.Insert",
		trace.WithAttributes(attribute.String("chapter_id", chapterID)))
	defer span.End()

	row := &entity.Embedding{
		ChapterID:  chapterID,
		Content:    content,
		Characters: characters,
		Metadata:   metadata,
	}
	row.SetVector(vec)

	if err := s.embeddings.Create(ctx, row); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to insert embedding: %w", err)
	}
	return row.ID, nil
}

// Search 按余弦相似度降序检索，先过滤后排序
func (s *Store) Search(ctx context.Context, queryVector []float32, opts SearchOptions) ([]*Match, error) {
	ctx, span := tracer.Start(ctx, "vector.Store.Search",
		trace.WithAttributes(
			attribute.Int("filter.characters", len(opts.Characters)),
			attribute.Bool("filter.all_characters", opts.AllCharacters),
		))
	defer span.End()

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.embeddings.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	matches := make([]*Match, 0, len(rows))
	for _, row := range rows {
		if !matchCharacters(row.Characters, opts.Characters, opts.AllCharacters) {
			continue
		}
		if !matchMetadata(row.Metadata, opts.Metadata) {
			continue
		}
		matches = append(matches, &Match{
			Embedding:  row,
			Similarity: CosineSimilarity(queryVector, row.GetVector()),
		})
	}

	// 稳定排序保证同分结果保持插入顺序
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	span.SetAttributes(attribute.Int("result.count", len(matches)))
	return matches, nil
}

// DeleteByChapter 删除章节拥有的全部向量行；幂等
func (s *Store) DeleteByChapter(ctx context.Context, chapterID string) error {
	ctx, span := tracer.Start(ctx, "vector.Store.DeleteByChapter",
		trace.WithAttributes(attribute.String("chapter_id", chapterID)))
	defer span.End()

	if err := s.embeddings.DeleteByChapter(ctx, chapterID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapter embeddings: %w", err)
	}
	return nil
}

// GetCharacters 返回与指定角色共现的全部角色，去重、字典序、不含自身
func (s *Store) GetCharacters(ctx context.Context, character string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "vector.Store.GetCharacters",
		trace.WithAttributes(attribute.String("character", character)))
	defer span.End()

	rows, err := s.embeddings.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	seen := make(map[string]struct{})
	for _, row := range rows {
		if !containsString(row.Characters, character) {
			continue
		}
		for _, c := range row.Characters {
			if c != character {
				seen[c] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(seen))
	for c := range seen {
		result = append(result, c)
	}
	sort.Strings(result)
	return result, nil
}

// matchCharacters 判断向量行的角色集是否满足过滤条件
func matchCharacters(rowCharacters []string, filter []string, all bool) bool {
	if len(filter) == 0 {
		return true
	}
	if all {
		for _, want := range filter {
			if !containsString(rowCharacters, want) {
				return false
			}
		}
		return true
	}
	for _, want := range filter {
		if containsString(rowCharacters, want) {
			return true
		}
	}
	return false
}

// matchMetadata 判断向量行的元数据是否满足全部精确匹配条件
func matchMetadata(rowMeta, filter map[string]string) bool {
	for k, want := range filter {
		if rowMeta[k] != want {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CosineSimilarity 计算余弦相似度 dot(a,b)/(‖a‖·‖b‖)
// 维度不一致返回 0 而不报错，保证排序全序
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

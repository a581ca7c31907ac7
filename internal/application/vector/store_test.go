package vector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoes-index-api/internal/domain/entity"
)

// fakeEmbeddingRepo 内存版向量行仓储，保持插入顺序
type fakeEmbeddingRepo struct {
	rows []*entity.Embedding
}

func (f *fakeEmbeddingRepo) Create(_ context.Context, e *entity.Embedding) error {
	if e.ID == "" {
		e.ID = fmt.Sprintf("emb-%d", len(f.rows)+1)
	}
	f.rows = append(f.rows, e)
	return nil
}

func (f *fakeEmbeddingRepo) DeleteByChapter(_ context.Context, chapterID string) error {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.ChapterID != chapterID {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeEmbeddingRepo) ListAll(_ context.Context) ([]*entity.Embedding, error) {
	return f.rows, nil
}

func (f *fakeEmbeddingRepo) ListByChapter(_ context.Context, chapterID string) ([]*entity.Embedding, error) {
	var out []*entity.Embedding
	for _, r := range f.rows {
		if r.ChapterID == chapterID {
			out = append(out, r)
		}
	}
	return out, nil
}

func insertRow(t *testing.T, store *Store, chapterID string, vec []float32, characters []string, metadata map[string]string) string {
	t.Helper()
	id, err := store.Insert(context.Background(), chapterID, "content of "+chapterID, vec, characters, metadata)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}

	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity(a, []float32{0, 1, 0}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity(a, []float32{-1, 0, 0}), 1e-9)

	// 维度不一致和零向量都返回 0，不报错
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{0, 0, 0}))
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	store := NewStore(&fakeEmbeddingRepo{})
	ctx := context.Background()

	insertRow(t, store, "ch-far", []float32{0, 1, 0}, nil, nil)
	insertRow(t, store, "ch-near", []float32{1, 0.1, 0}, nil, nil)
	insertRow(t, store, "ch-exact", []float32{1, 0, 0}, nil, nil)

	matches, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "ch-exact", matches[0].Embedding.ChapterID)
	assert.Equal(t, "ch-near", matches[1].Embedding.ChapterID)
	assert.Equal(t, "ch-far", matches[2].Embedding.ChapterID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Greater(t, matches[1].Similarity, matches[2].Similarity)
}

func TestSearchLimit(t *testing.T) {
	store := NewStore(&fakeEmbeddingRepo{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		insertRow(t, store, fmt.Sprintf("ch-%d", i), []float32{1, 0, 0}, nil, nil)
	}

	matches, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	// 同分结果保持插入顺序
	assert.Equal(t, "ch-0", matches[0].Embedding.ChapterID)
	assert.Equal(t, "ch-1", matches[1].Embedding.ChapterID)
}

func TestSearchCharacterFilter(t *testing.T) {
	store := NewStore(&fakeEmbeddingRepo{})
	ctx := context.Background()
	vec := []float32{1, 0, 0}

	insertRow(t, store, "ch-alice", vec, []string{"alice"}, nil)
	insertRow(t, store, "ch-bob", vec, []string{"bob"}, nil)
	insertRow(t, store, "ch-both", vec, []string{"alice", "bob"}, nil)

	// OR 语义：任一角色出现即命中
	matches, err := store.Search(ctx, vec, SearchOptions{Characters: []string{"alice", "bob"}})
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	// AND 语义：要求全部角色出现
	matches, err = store.Search(ctx, vec, SearchOptions{Characters: []string{"alice", "bob"}, AllCharacters: true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ch-both", matches[0].Embedding.ChapterID)
}

func TestSearchMetadataFilter(t *testing.T) {
	store := NewStore(&fakeEmbeddingRepo{})
	ctx := context.Background()
	vec := []float32{1, 0, 0}

	insertRow(t, store, "ch-s1", vec, nil, map[string]string{"arc": "s1", "pov": "alice"})
	insertRow(t, store, "ch-s2", vec, nil, map[string]string{"arc": "s2", "pov": "alice"})

	matches, err := store.Search(ctx, vec, SearchOptions{Metadata: map[string]string{"arc": "s1"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ch-s1", matches[0].Embedding.ChapterID)

	// 全部键都必须匹配
	matches, err = store.Search(ctx, vec, SearchOptions{Metadata: map[string]string{"arc": "s2", "pov": "bob"}})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchMismatchedDimensions(t *testing.T) {
	store := NewStore(&fakeEmbeddingRepo{})
	ctx := context.Background()

	insertRow(t, store, "ch-3d", []float32{1, 0, 0}, nil, nil)
	insertRow(t, store, "ch-2d", []float32{1, 0}, nil, nil)

	matches, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// 维度不一致的行相似度为 0，排在后面
	assert.Equal(t, "ch-3d", matches[0].Embedding.ChapterID)
	assert.Equal(t, 0.0, matches[1].Similarity)
}

func TestDeleteByChapter(t *testing.T) {
	repo := &fakeEmbeddingRepo{}
	store := NewStore(repo)
	ctx := context.Background()

	insertRow(t, store, "ch-keep", []float32{1, 0}, nil, nil)
	insertRow(t, store, "ch-drop", []float32{0, 1}, nil, nil)

	require.NoError(t, store.DeleteByChapter(ctx, "ch-drop"))
	assert.Len(t, repo.rows, 1)

	// 删除不存在的章节是空操作
	require.NoError(t, store.DeleteByChapter(ctx, "ch-missing"))
	assert.Len(t, repo.rows, 1)
}

func TestGetCharacters(t *testing.T) {
	store := NewStore(&fakeEmbeddingRepo{})
	ctx := context.Background()
	vec := []float32{1, 0}

	insertRow(t, store, "ch-1", vec, []string{"alice", "bob"}, nil)
	insertRow(t, store, "ch-2", vec, []string{"alice", "carol"}, nil)
	insertRow(t, store, "ch-3", vec, []string{"dave"}, nil)

	got, err := store.GetCharacters(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, got)

	got, err = store.GetCharacters(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

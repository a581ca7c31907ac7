package search

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoes-index-api/internal/application/vector"
	"echoes-index-api/internal/config"
	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
)

// stubProvider 返回预置向量的嵌入提供者
type stubProvider struct {
	vecs map[string][]float32
}

func (p *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := p.vecs[text]
		if !ok {
			return nil, fmt.Errorf("no stub vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func (p *stubProvider) Model() string  { return "stub" }
func (p *stubProvider) Dimension() int { return 2 }

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

// fakeEntityRepo 只支撑检索路径需要的方法
type fakeEntityRepo struct {
	entities  []*entity.StoryEntity
	searchErr error
}

func (f *fakeEntityRepo) Create(_ context.Context, _ *entity.StoryEntity) error { return nil }
func (f *fakeEntityRepo) Update(_ context.Context, _ *entity.StoryEntity) error { return nil }

func (f *fakeEntityRepo) GetByNaturalKey(_ context.Context, _ string, _ entity.StoryEntityType, _ string) (*entity.StoryEntity, error) {
	return nil, nil
}

func (f *fakeEntityRepo) ListByArc(_ context.Context, _ string, _ *repository.EntityFilter) ([]*entity.StoryEntity, error) {
	return f.entities, nil
}

func (f *fakeEntityRepo) SearchByName(_ context.Context, _ string, _ string, _ int) ([]*entity.StoryEntity, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.entities, nil
}

func (f *fakeEntityRepo) ListPaged(_ context.Context, _ string, _ *repository.EntityFilter, p repository.Pagination) (*repository.PagedResult[*entity.StoryEntity], error) {
	return repository.NewPagedResult(f.entities, int64(len(f.entities)), p), nil
}

type fakeRelationRepo struct {
	relations []*entity.Relation
}

func (f *fakeRelationRepo) Create(_ context.Context, _ *entity.Relation) error { return nil }
func (f *fakeRelationRepo) Update(_ context.Context, _ *entity.Relation) error { return nil }

func (f *fakeRelationRepo) ListByArc(_ context.Context, _ string, _ *repository.RelationFilter) ([]*entity.Relation, error) {
	return f.relations, nil
}

func (f *fakeRelationRepo) ListPaged(_ context.Context, _ string, _ *repository.RelationFilter, p repository.Pagination) (*repository.PagedResult[*entity.Relation], error) {
	return repository.NewPagedResult(f.relations, int64(len(f.relations)), p), nil
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultTopK:  10,
		MaxTopK:      50,
		GraphRAG:     true,
		GraphTimeout: time.Second,
	}
}

func seedStore(t *testing.T, store *vector.Store) {
	t.Helper()
	ctx := context.Background()

	// ch001 与查询更接近；ch002 稍远但在图候选集中
	_, err := store.Insert(ctx, "id-1", "chapter one", []float32{0.85, 0.527}, []string{"alice"},
		map[string]string{"arc": "s1", "episode": "1", "chapter": "1", "pov": "alice"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "id-2", "chapter two", []float32{0.8, 0.6}, []string{"alice"},
		map[string]string{"arc": "s1", "episode": "1", "chapter": "2", "pov": "alice"})
	require.NoError(t, err)
}

func newTestEngine(entities *fakeEntityRepo, relations *fakeRelationRepo, cfg config.SearchConfig) (*Engine, *vector.Store) {
	provider := &stubProvider{vecs: map[string][]float32{"alice": {1, 0}}}
	store := vector.NewStore(&fakeEmbeddingRepo{})
	return NewEngine(provider, store, entities, relations, nil, cfg), store
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(&fakeEntityRepo{}, &fakeRelationRepo{}, testConfig())

	_, err := engine.Search(context.Background(), Input{Query: "   "})
	assert.Error(t, err)
}

func TestSearchVectorPath(t *testing.T) {
	cfg := testConfig()
	cfg.GraphRAG = false
	engine, store := newTestEngine(&fakeEntityRepo{}, &fakeRelationRepo{}, cfg)
	seedStore(t, store)

	results, err := engine.Search(context.Background(), Input{Query: "alice"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "vector", results[0].Source)
	assert.Equal(t, "chapter one", results[0].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchGraphBoostReranks(t *testing.T) {
	alice := entity.NewStoryEntity("s1", "Alice", entity.EntityTypeCharacter)
	alice.RecordAppearance("s1:ep01:ch002")

	engine, store := newTestEngine(
		&fakeEntityRepo{entities: []*entity.StoryEntity{alice}},
		&fakeRelationRepo{},
		testConfig(),
	)
	seedStore(t, store)

	results, err := engine.Search(context.Background(), Input{Query: "alice"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// ch002 在实体出场集中，+0.1 加权后反超 ch001
	assert.Equal(t, "graphrag", results[0].Source)
	assert.Equal(t, "chapter two", results[0].Content)
	assert.Equal(t, "chapter one", results[1].Content)
}

func TestSearchFallsBackOnGraphError(t *testing.T) {
	engine, store := newTestEngine(
		&fakeEntityRepo{searchErr: fmt.Errorf("entity store down")},
		&fakeRelationRepo{},
		testConfig(),
	)
	seedStore(t, store)

	results, err := engine.Search(context.Background(), Input{Query: "alice"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "vector", results[0].Source)
}

func TestSearchRespectsExplicitGraphRAGOverride(t *testing.T) {
	alice := entity.NewStoryEntity("s1", "Alice", entity.EntityTypeCharacter)
	alice.RecordAppearance("s1:ep01:ch002")

	engine, store := newTestEngine(
		&fakeEntityRepo{entities: []*entity.StoryEntity{alice}},
		&fakeRelationRepo{},
		testConfig(),
	)
	seedStore(t, store)

	off := false
	results, err := engine.Search(context.Background(), Input{Query: "alice", UseGraphRAG: &off})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "vector", results[0].Source)
}

func TestSearchTopKClamp(t *testing.T) {
	cfg := testConfig()
	cfg.GraphRAG = false
	cfg.MaxTopK = 1
	engine, store := newTestEngine(&fakeEntityRepo{}, &fakeRelationRepo{}, cfg)
	seedStore(t, store)

	results, err := engine.Search(context.Background(), Input{Query: "alice", TopK: 100})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestResultCacheKeyMatchesArcInvalidation(t *testing.T) {
	engine, _ := newTestEngine(&fakeEntityRepo{}, &fakeRelationRepo{}, testConfig())

	// 弧限定的结果键落在 search:res:<arc>: 前缀下，
	// 与索引写入后的按弧失效模式对应
	scoped := engine.resultCacheKey(Input{Query: "alice", Arc: "s1"})
	assert.True(t, strings.HasPrefix(scoped, "search:res:s1:"), scoped)

	// 未限定弧的请求归入 all 段
	unscoped := engine.resultCacheKey(Input{Query: "alice"})
	assert.True(t, strings.HasPrefix(unscoped, "search:res:all:"), unscoped)

	// 不同请求参数产生不同键
	other := engine.resultCacheKey(Input{Query: "alice", Arc: "s1", TopK: 5})
	assert.NotEqual(t, scoped, other)
	assert.NotEqual(t, scoped, unscoped)
}

func TestSearchPOVFilter(t *testing.T) {
	cfg := testConfig()
	cfg.GraphRAG = false
	engine, store := newTestEngine(&fakeEntityRepo{}, &fakeRelationRepo{}, cfg)
	seedStore(t, store)

	_, err := store.Insert(context.Background(), "id-3", "bob chapter", []float32{0.99, 0.1}, []string{"bob"},
		map[string]string{"arc": "s1", "episode": "2", "chapter": "1", "pov": "bob"})
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), Input{Query: "alice", POV: "bob"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob chapter", results[0].Content)
}

package indexing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoes-index-api/internal/application/vector"
	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/infrastructure/embedding"
)

// fakeTransactor 直接执行回调，不开启事务
type fakeTransactor struct{}

func (fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeVectorRepo struct {
	rows []*entity.Embedding
}

func (f *fakeVectorRepo) Create(_ context.Context, e *entity.Embedding) error {
	if e.ID == "" {
		e.ID = "emb-" + e.ChapterID
	}
	f.rows = append(f.rows, e)
	return nil
}

func (f *fakeVectorRepo) DeleteByChapter(_ context.Context, chapterID string) error {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.ChapterID != chapterID {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeVectorRepo) ListAll(_ context.Context) ([]*entity.Embedding, error) {
	return f.rows, nil
}

func (f *fakeVectorRepo) ListByChapter(_ context.Context, chapterID string) ([]*entity.Embedding, error) {
	var out []*entity.Embedding
	for _, r := range f.rows {
		if r.ChapterID == chapterID {
			out = append(out, r)
		}
	}
	return out, nil
}

type indexerFixture struct {
	root     string
	indexer  *Indexer
	chapters *fakeChapterRepo
	vectors  *fakeVectorRepo
}

func newIndexerFixture(t *testing.T) *indexerFixture {
	t.Helper()
	root := t.TempDir()

	chapters := &fakeChapterRepo{}
	vectors := &fakeVectorRepo{}
	sync := NewSynchronizer(&fakeTimelineRepo{}, &fakeArcRepo{}, &fakeEpisodeRepo{}, chapters)
	store := vector.NewStore(vectors)
	provider := embedding.NewSyntheticProvider("synthetic", 32)

	return &indexerFixture{
		root:     root,
		indexer:  NewIndexer(NewScanner(root, "main"), sync, chapters, store, provider, fakeTransactor{}, 2000),
		chapters: chapters,
		vectors:  vectors,
	}
}

func (f *indexerFixture) write(t *testing.T, relPath, content string) {
	t.Helper()
	writeChapter(t, f.root, relPath, content)
}

func (f *indexerFixture) remove(t *testing.T, relPath string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(f.root, filepath.FromSlash(relPath))))
}

func TestIndexFirstRun(t *testing.T) {
	f := newIndexerFixture(t)
	f.write(t, "s1/ep01-x/ep01-ch001-alice-x.md", "Alice arrives at the lighthouse.")
	f.write(t, "s1/ep01-x/ep01-ch002-bob-x.md", "Bob watches from the pier.")

	result, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Indexed)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, SyncCounts{Timelines: 1, Arcs: 1, Episodes: 1, Chapters: 2}, result.Sync)
	assert.Len(t, f.vectors.rows, 2)

	// 向量行携带定位元数据和 POV 角色
	row := f.vectors.rows[0]
	assert.Equal(t, "s1", row.Metadata["arc"])
	assert.Equal(t, []string{"alice"}, []string(row.Characters))

	// 章节行写入统计与文件哈希
	require.NotNil(t, f.chapters.rows[0].Stats)
	assert.Equal(t, 5, f.chapters.rows[0].Stats.WordCount)
	assert.NotEmpty(t, f.chapters.rows[0].FileHash)
}

func TestIndexIncrementalSkip(t *testing.T) {
	f := newIndexerFixture(t)
	f.write(t, "s1/ep01-x/ep01-ch001-alice-x.md", "Unchanged content.")

	_, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)

	result, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Indexed)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, f.vectors.rows, 1)
}

func TestIndexDetectsUpdate(t *testing.T) {
	f := newIndexerFixture(t)
	f.write(t, "s1/ep01-x/ep01-ch001-alice-x.md", "Original draft.")

	_, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)

	f.write(t, "s1/ep01-x/ep01-ch001-alice-x.md", "Revised draft with new scenes.")
	result, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Indexed)
	// 旧向量行被整体替换
	require.Len(t, f.vectors.rows, 1)
	assert.Contains(t, f.vectors.rows[0].Content, "Revised")
}

func TestIndexForceReindexesAll(t *testing.T) {
	f := newIndexerFixture(t)
	f.write(t, "s1/ep01-x/ep01-ch001-alice-x.md", "Same content.")

	_, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)

	result, err := f.indexer.Index(context.Background(), IndexOptions{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Indexed)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, f.vectors.rows, 1)
}

func TestIndexDeletesRemovedChapters(t *testing.T) {
	f := newIndexerFixture(t)
	f.write(t, "s1/ep01-x/ep01-ch001-alice-x.md", "Stays.")
	f.write(t, "s1/ep01-x/ep01-ch002-bob-x.md", "Goes away.")

	_, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)
	require.Len(t, f.chapters.rows, 2)

	f.remove(t, "s1/ep01-x/ep01-ch002-bob-x.md")
	result, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	assert.Len(t, f.chapters.rows, 1)
	assert.Len(t, f.vectors.rows, 1)
}

func TestIndexArcFilterDoesNotDeleteOtherArcs(t *testing.T) {
	f := newIndexerFixture(t)
	f.write(t, "s1/ep01-x/ep01-ch001-alice-x.md", "Arc one.")
	f.write(t, "s2/ep01-x/ep01-ch001-carol-x.md", "Arc two.")

	_, err := f.indexer.Index(context.Background(), IndexOptions{})
	require.NoError(t, err)
	require.Len(t, f.chapters.rows, 2)

	// 只索引 s1；s2 的章节虽然不在本批描述中，也不能被当作已删除
	result, err := f.indexer.Index(context.Background(), IndexOptions{Arc: "s1"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Deleted)
	assert.Len(t, f.chapters.rows, 2)
}

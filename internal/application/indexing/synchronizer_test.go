package indexing

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
)

// 内存版层级仓储，Create 时分配 id，自然键查询未命中返回 (nil, nil)

type fakeTimelineRepo struct {
	rows []*entity.Timeline
}

func (f *fakeTimelineRepo) Create(_ context.Context, t *entity.Timeline) error {
	t.ID = fmt.Sprintf("tl-%d", len(f.rows)+1)
	f.rows = append(f.rows, t)
	return nil
}

func (f *fakeTimelineRepo) GetByID(_ context.Context, id string) (*entity.Timeline, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeTimelineRepo) GetByName(_ context.Context, name string) (*entity.Timeline, error) {
	for _, r := range f.rows {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeTimelineRepo) List(_ context.Context) ([]*entity.Timeline, error) {
	return f.rows, nil
}

type fakeArcRepo struct {
	rows []*entity.Arc
}

func (f *fakeArcRepo) Create(_ context.Context, a *entity.Arc) error {
	a.ID = fmt.Sprintf("arc-%d", len(f.rows)+1)
	f.rows = append(f.rows, a)
	return nil
}

func (f *fakeArcRepo) GetByID(_ context.Context, id string) (*entity.Arc, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeArcRepo) GetByTimelineAndName(_ context.Context, timelineID, name string) (*entity.Arc, error) {
	for _, r := range f.rows {
		if r.TimelineID == timelineID && r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeArcRepo) GetByName(_ context.Context, name string) (*entity.Arc, error) {
	for _, r := range f.rows {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeArcRepo) ListByTimeline(_ context.Context, timelineID string) ([]*entity.Arc, error) {
	var out []*entity.Arc
	for _, r := range f.rows {
		if r.TimelineID == timelineID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeArcRepo) CountByTimeline(_ context.Context, timelineID string) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.TimelineID == timelineID {
			n++
		}
	}
	return n, nil
}

type fakeEpisodeRepo struct {
	rows []*entity.Episode
}

func (f *fakeEpisodeRepo) Create(_ context.Context, e *entity.Episode) error {
	e.ID = fmt.Sprintf("ep-%d", len(f.rows)+1)
	f.rows = append(f.rows, e)
	return nil
}

func (f *fakeEpisodeRepo) GetByID(_ context.Context, id string) (*entity.Episode, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeEpisodeRepo) GetByArcAndNumber(_ context.Context, arcID string, number int) (*entity.Episode, error) {
	for _, r := range f.rows {
		if r.ArcID == arcID && r.Number == number {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeEpisodeRepo) ListByArc(_ context.Context, arcID string) ([]*entity.Episode, error) {
	var out []*entity.Episode
	for _, r := range f.rows {
		if r.ArcID == arcID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeChapterRepo struct {
	rows []*entity.Chapter
}

func (f *fakeChapterRepo) Create(_ context.Context, c *entity.Chapter) error {
	c.ID = fmt.Sprintf("ch-%d", len(f.rows)+1)
	f.rows = append(f.rows, c)
	return nil
}

func (f *fakeChapterRepo) GetByID(_ context.Context, id string) (*entity.Chapter, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeChapterRepo) GetByEpisodeAndNumber(_ context.Context, episodeID string, number int) (*entity.Chapter, error) {
	for _, r := range f.rows {
		if r.EpisodeID == episodeID && r.Number == number {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeChapterRepo) Update(_ context.Context, c *entity.Chapter) error {
	for i, r := range f.rows {
		if r.ID == c.ID {
			f.rows[i] = c
			return nil
		}
	}
	return fmt.Errorf("chapter not found: %s", c.ID)
}

func (f *fakeChapterRepo) Delete(_ context.Context, id string) error {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeChapterRepo) locate(c *entity.Chapter) *repository.LocatedChapter {
	located := &repository.LocatedChapter{Chapter: *c, Timeline: "main"}
	if i := strings.Index(c.FilePath, "/"); i > 0 {
		located.Arc = c.FilePath[:i]
	}
	return located
}

func (f *fakeChapterRepo) ListLocated(_ context.Context, arcName string) ([]*repository.LocatedChapter, error) {
	var out []*repository.LocatedChapter
	for _, r := range f.rows {
		located := f.locate(r)
		if arcName == "" || located.Arc == arcName {
			out = append(out, located)
		}
	}
	return out, nil
}

func (f *fakeChapterRepo) GetLocatedByPath(_ context.Context, path string) (*repository.LocatedChapter, error) {
	for _, r := range f.rows {
		if r.FilePath == path {
			return f.locate(r), nil
		}
	}
	return nil, nil
}

func (f *fakeChapterRepo) ListFileHashes(_ context.Context) (map[string]string, error) {
	hashes := make(map[string]string)
	for _, r := range f.rows {
		if r.FilePath != "" {
			hashes[r.FilePath] = r.FileHash
		}
	}
	return hashes, nil
}

func newTestSynchronizer() (*Synchronizer, *fakeTimelineRepo, *fakeArcRepo, *fakeEpisodeRepo, *fakeChapterRepo) {
	timelines := &fakeTimelineRepo{}
	arcs := &fakeArcRepo{}
	episodes := &fakeEpisodeRepo{}
	chapters := &fakeChapterRepo{}
	return NewSynchronizer(timelines, arcs, episodes, chapters), timelines, arcs, episodes, chapters
}

func descriptor(arc string, episode, chapter int) *ChapterDescriptor {
	return &ChapterDescriptor{
		FilePath: fmt.Sprintf("%s/ep%02d-x/ep%02d-ch%03d-alice-x.md", arc, episode, episode, chapter),
		FileHash: "deadbeef00000000",
		Timeline: "main",
		Arc:      arc,
		Episode:  episode,
		Chapter:  chapter,
		POV:      "alice",
		Title:    "x",
	}
}

func TestSyncChaptersCreatesHierarchy(t *testing.T) {
	sync, timelines, arcs, episodes, chapters := newTestSynchronizer()
	ctx := context.Background()

	counts, err := sync.SyncChapters(ctx, []*ChapterDescriptor{descriptor("s1-awakening", 1, 1)})
	require.NoError(t, err)

	assert.Equal(t, &SyncCounts{Timelines: 1, Arcs: 1, Episodes: 1, Chapters: 1}, counts)
	require.Len(t, timelines.rows, 1)
	require.Len(t, arcs.rows, 1)
	require.Len(t, episodes.rows, 1)
	require.Len(t, chapters.rows, 1)

	assert.Equal(t, "main", timelines.rows[0].Name)
	assert.Equal(t, timelines.rows[0].ID, arcs.rows[0].TimelineID)
	assert.Equal(t, 1, arcs.rows[0].Order)
	assert.Equal(t, arcs.rows[0].ID, episodes.rows[0].ArcID)
	assert.Equal(t, episodes.rows[0].ID, chapters.rows[0].EpisodeID)
	assert.Equal(t, "alice", chapters.rows[0].POV)
	// 同步只建行，哈希由向量化写入
	assert.Empty(t, chapters.rows[0].FileHash)
}

func TestSyncChaptersIdempotent(t *testing.T) {
	sync, _, _, _, _ := newTestSynchronizer()
	ctx := context.Background()
	records := []*ChapterDescriptor{
		descriptor("s1-awakening", 1, 1),
		descriptor("s1-awakening", 1, 2),
		descriptor("s1-awakening", 2, 1),
	}

	counts, err := sync.SyncChapters(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, &SyncCounts{Timelines: 1, Arcs: 1, Episodes: 2, Chapters: 3}, counts)

	// 第二趟全部已存在，不创建任何行
	counts, err = sync.SyncChapters(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, &SyncCounts{}, counts)
}

func TestSyncChaptersDoesNotOverwriteExisting(t *testing.T) {
	sync, _, _, _, chapters := newTestSynchronizer()
	ctx := context.Background()

	rec := descriptor("s1-awakening", 1, 1)
	_, err := sync.SyncChapters(ctx, []*ChapterDescriptor{rec})
	require.NoError(t, err)

	// 同一章节以不同元数据再次同步，已有行保持不变
	changed := descriptor("s1-awakening", 1, 1)
	changed.POV = "bob"
	changed.Title = "rewritten"
	_, err = sync.SyncChapters(ctx, []*ChapterDescriptor{changed})
	require.NoError(t, err)

	require.Len(t, chapters.rows, 1)
	assert.Equal(t, "alice", chapters.rows[0].POV)
	assert.Equal(t, "x", chapters.rows[0].Title)
}

func TestSyncChaptersEmptyBatch(t *testing.T) {
	sync, _, _, _, _ := newTestSynchronizer()

	counts, err := sync.SyncChapters(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, &SyncCounts{}, counts)
}

func TestSyncChaptersAssignsArcOrder(t *testing.T) {
	sync, _, arcs, _, _ := newTestSynchronizer()
	ctx := context.Background()

	_, err := sync.SyncChapters(ctx, []*ChapterDescriptor{
		descriptor("s1-awakening", 1, 1),
		descriptor("s2-descent", 1, 1),
	})
	require.NoError(t, err)

	require.Len(t, arcs.rows, 2)
	assert.Equal(t, 1, arcs.rows[0].Order)
	assert.Equal(t, 2, arcs.rows[1].Order)
}

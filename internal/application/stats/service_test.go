package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
)

type fakeChapterRepo struct {
	located []*repository.LocatedChapter
}

func (f *fakeChapterRepo) Create(_ context.Context, _ *entity.Chapter) error { return nil }
func (f *fakeChapterRepo) GetByID(_ context.Context, _ string) (*entity.Chapter, error) {
	return nil, nil
}
func (f *fakeChapterRepo) GetByEpisodeAndNumber(_ context.Context, _ string, _ int) (*entity.Chapter, error) {
	return nil, nil
}
func (f *fakeChapterRepo) Update(_ context.Context, _ *entity.Chapter) error { return nil }
func (f *fakeChapterRepo) Delete(_ context.Context, _ string) error          { return nil }

func (f *fakeChapterRepo) ListLocated(_ context.Context, arcName string) ([]*repository.LocatedChapter, error) {
	if arcName == "" {
		return f.located, nil
	}
	var out []*repository.LocatedChapter
	for _, ch := range f.located {
		if ch.Arc == arcName {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeChapterRepo) GetLocatedByPath(_ context.Context, _ string) (*repository.LocatedChapter, error) {
	return nil, nil
}

func (f *fakeChapterRepo) ListFileHashes(_ context.Context) (map[string]string, error) {
	return nil, nil
}

func located(arc string, episode, number int, pov string, words, chars, paragraphs int) *repository.LocatedChapter {
	ch := &repository.LocatedChapter{
		Timeline:   "main",
		Arc:        arc,
		EpisodeNum: episode,
	}
	ch.Number = number
	ch.POV = pov
	ch.Stats = &entity.ChapterStats{
		WordCount:      words,
		CharCount:      chars,
		ParagraphCount: paragraphs,
	}
	return ch
}

func TestSummarizeAggregates(t *testing.T) {
	repo := &fakeChapterRepo{located: []*repository.LocatedChapter{
		located("s1", 1, 1, "alice", 100, 500, 4),
		located("s1", 1, 2, "bob", 200, 900, 6),
		located("s2", 1, 1, "alice", 50, 250, 2),
	}}
	service := NewService(repo)

	summary, err := service.Summarize(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Chapters)
	assert.Equal(t, 350, summary.Words)
	assert.Equal(t, 1650, summary.Characters)
	assert.Equal(t, 12, summary.Paragraphs)
	assert.Equal(t, map[string]int{"s1": 2, "s2": 1}, summary.ByArc)
	assert.Equal(t, map[string]int{"alice": 2, "bob": 1}, summary.ByPOV)
}

func TestSummarizeFilters(t *testing.T) {
	repo := &fakeChapterRepo{located: []*repository.LocatedChapter{
		located("s1", 1, 1, "alice", 100, 500, 4),
		located("s1", 2, 1, "alice", 200, 900, 6),
		located("s1", 2, 2, "bob", 50, 250, 2),
	}}
	service := NewService(repo)

	summary, err := service.Summarize(context.Background(), Filter{Arc: "s1", Episode: 2, POV: "bob"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Chapters)
	assert.Equal(t, 50, summary.Words)
	assert.Equal(t, map[string]int{"bob": 1}, summary.ByPOV)
}

func TestSummarizeMissingStats(t *testing.T) {
	ch := located("s1", 1, 1, "alice", 0, 0, 0)
	ch.Stats = nil
	repo := &fakeChapterRepo{located: []*repository.LocatedChapter{ch}}
	service := NewService(repo)

	summary, err := service.Summarize(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Chapters)
	assert.Equal(t, 0, summary.Words)
}

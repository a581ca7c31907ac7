package indexing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
	"echoes-index-api/pkg/logger"
	"echoes-index-api/pkg/metrics"
)

// SyncCounts 层级同步计数结果
type SyncCounts struct {
	Timelines int `json:"timelines_created"`
	Arcs      int `json:"arcs_created"`
	Episodes  int `json:"episodes_created"`
	Chapters  int `json:"chapters_created"`
}

// Synchronizer 层级同步器
// 按 Timeline -> Arc -> Episode -> Chapter 四趟幂等 ensure，
// 只创建缺失的行，从不覆盖已有行
type Synchronizer struct {
	timelines repository.TimelineRepository
	arcs      repository.ArcRepository
	episodes  repository.EpisodeRepository
	chapters  repository.ChapterRepository
}

// NewSynchronizer 创建层级同步器
func NewSynchronizer(
	timelines repository.TimelineRepository,
	arcs repository.ArcRepository,
	episodes repository.EpisodeRepository,
	chapters repository.ChapterRepository,
) *Synchronizer {
	return &Synchronizer{
		timelines: timelines,
		arcs:      arcs,
		episodes:  episodes,
		chapters:  chapters,
	}
}

type arcKey struct {
	timeline string
	arc      string
}

type episodeKey struct {
	timeline string
	arc      string
	episode  int
}

// SyncChapters 将章节描述同步到层级表
// 单条记录的祖先链断裂只跳过该分支，不中断整批
func (s *Synchronizer) SyncChapters(ctx context.Context, records []*ChapterDescriptor) (*SyncCounts, error) {
	ctx, span := tracer.Start(ctx, "indexing.Synchronizer.SyncChapters",
		trace.WithAttributes(attribute.Int("records.count", len(records))))
	defer span.End()

	counts := &SyncCounts{}
	if len(records) == 0 {
		return counts, nil
	}

	// 第一趟：Timeline
	timelineIDs := make(map[string]string)
	for _, rec := range records {
		if _, done := timelineIDs[rec.Timeline]; done {
			continue
		}
		id, created, err := s.ensureTimeline(ctx, rec.Timeline)
		if err != nil {
			logger.Warn(ctx, "timeline sync failed, skipping branch", "timeline", rec.Timeline, "error", err)
			timelineIDs[rec.Timeline] = ""
			continue
		}
		timelineIDs[rec.Timeline] = id
		if created {
			counts.Timelines++
			metrics.HierarchyRowsCreated.WithLabelValues("timeline").Inc()
		}
	}

	// 第二趟：Arc
	arcIDs := make(map[arcKey]string)
	for _, rec := range records {
		key := arcKey{rec.Timeline, rec.Arc}
		if _, done := arcIDs[key]; done {
			continue
		}
		timelineID := timelineIDs[rec.Timeline]
		if timelineID == "" {
			arcIDs[key] = ""
			continue
		}
		id, created, err := s.ensureArc(ctx, timelineID, rec.Arc)
		if err != nil {
			logger.Warn(ctx, "arc sync failed, skipping branch", "arc", rec.Arc, "error", err)
			arcIDs[key] = ""
			continue
		}
		arcIDs[key] = id
		if created {
			counts.Arcs++
			metrics.HierarchyRowsCreated.WithLabelValues("arc").Inc()
		}
	}

	// 第三趟：Episode
	episodeIDs := make(map[episodeKey]string)
	for _, rec := range records {
		key := episodeKey{rec.Timeline, rec.Arc, rec.Episode}
		if _, done := episodeIDs[key]; done {
			continue
		}
		arcID := arcIDs[arcKey{rec.Timeline, rec.Arc}]
		if arcID == "" {
			episodeIDs[key] = ""
			continue
		}
		id, created, err := s.ensureEpisode(ctx, arcID, rec.Episode)
		if err != nil {
			logger.Warn(ctx, "episode sync failed, skipping branch", "arc", rec.Arc, "episode", rec.Episode, "error", err)
			episodeIDs[key] = ""
			continue
		}
		episodeIDs[key] = id
		if created {
			counts.Episodes++
			metrics.HierarchyRowsCreated.WithLabelValues("episode").Inc()
		}
	}

	// 第四趟：Chapter
	for _, rec := range records {
		episodeID := episodeIDs[episodeKey{rec.Timeline, rec.Arc, rec.Episode}]
		if episodeID == "" {
			continue
		}
		created, err := s.ensureChapter(ctx, episodeID, rec)
		if err != nil {
			logger.Warn(ctx, "chapter sync failed, skipping record",
				"arc", rec.Arc, "episode", rec.Episode, "chapter", rec.Chapter, "error", err)
			continue
		}
		if created {
			counts.Chapters++
			metrics.HierarchyRowsCreated.WithLabelValues("chapter").Inc()
		}
	}

	span.SetAttributes(
		attribute.Int("created.timelines", counts.Timelines),
		attribute.Int("created.arcs", counts.Arcs),
		attribute.Int("created.episodes", counts.Episodes),
		attribute.Int("created.chapters", counts.Chapters),
	)
	return counts, nil
}

// ensureTimeline 按名称确保时间线存在，返回 (id, 是否新建)
func (s *Synchronizer) ensureTimeline(ctx context.Context, name string) (string, bool, error) {
	existing, err := s.timelines.GetByName(ctx, name)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	timeline := entity.NewTimeline(name)
	if err := s.timelines.Create(ctx, timeline); err != nil {
		return "", false, fmt.Errorf("failed to create timeline: %w", err)
	}
	return timeline.ID, true, nil
}

// ensureArc 按 (timeline, name) 确保故事弧存在
// 占位 slug 由名称派生，order 按创建顺序分配
func (s *Synchronizer) ensureArc(ctx context.Context, timelineID, name string) (string, bool, error) {
	existing, err := s.arcs.GetByTimelineAndName(ctx, timelineID, name)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	order, err := s.arcs.CountByTimeline(ctx, timelineID)
	if err != nil {
		return "", false, err
	}

	arc := entity.NewArc(timelineID, name, int(order)+1)
	if err := s.arcs.Create(ctx, arc); err != nil {
		return "", false, fmt.Errorf("failed to create arc: %w", err)
	}
	return arc.ID, true, nil
}

// ensureEpisode 按 (arc, number) 确保集存在
func (s *Synchronizer) ensureEpisode(ctx context.Context, arcID string, number int) (string, bool, error) {
	existing, err := s.episodes.GetByArcAndNumber(ctx, arcID, number)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	episode := entity.NewEpisode(arcID, number)
	if err := s.episodes.Create(ctx, episode); err != nil {
		return "", false, fmt.Errorf("failed to create episode: %w", err)
	}
	return episode.ID, true, nil
}

// ensureChapter 按 (episode, number) 确保章节存在
// 已存在的章节不被覆盖；权威内容由独立的写作流程维护
func (s *Synchronizer) ensureChapter(ctx context.Context, episodeID string, rec *ChapterDescriptor) (bool, error) {
	existing, err := s.chapters.GetByEpisodeAndNumber(ctx, episodeID, rec.Chapter)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	chapter := entity.NewChapter(episodeID, rec.Chapter)
	chapter.POV = rec.POV
	chapter.Title = rec.Title
	chapter.Location = rec.Location
	chapter.Date = rec.Date
	chapter.Kink = rec.Kink
	chapter.FilePath = rec.FilePath
	// FileHash 留空：哈希只在章节向量化成功后由索引器写入
	if err := s.chapters.Create(ctx, chapter); err != nil {
		return false, fmt.Errorf("failed to create chapter: %w", err)
	}
	return true, nil
}

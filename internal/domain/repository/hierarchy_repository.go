package repository

import (
	"context"

	"echoes-index-api/internal/domain/entity"
)

// TimelineRepository 时间线仓储接口
type TimelineRepository interface {
	Create(ctx context.Context, timeline *entity.Timeline) error
	GetByID(ctx context.Context, id string) (*entity.Timeline, error)
	// GetByName 按自然键查询；未找到时返回 (nil, nil)
	GetByName(ctx context.Context, name string) (*entity.Timeline, error)
	List(ctx context.Context) ([]*entity.Timeline, error)
}

// ArcRepository 故事弧仓储接口
type ArcRepository interface {
	Create(ctx context.Context, arc *entity.Arc) error
	GetByID(ctx context.Context, id string) (*entity.Arc, error)
	// GetByTimelineAndName 按自然键查询；未找到时返回 (nil, nil)
	GetByTimelineAndName(ctx context.Context, timelineID, name string) (*entity.Arc, error)
	// GetByName 在所有时间线中按名称查询第一个匹配的故事弧
	GetByName(ctx context.Context, name string) (*entity.Arc, error)
	ListByTimeline(ctx context.Context, timelineID string) ([]*entity.Arc, error)
	// CountByTimeline 统计时间线下的故事弧数量（用于分配创建顺序）
	CountByTimeline(ctx context.Context, timelineID string) (int64, error)
}

// EpisodeRepository 集仓储接口
type EpisodeRepository interface {
	Create(ctx context.Context, episode *entity.Episode) error
	GetByID(ctx context.Context, id string) (*entity.Episode, error)
	// GetByArcAndNumber 按自然键查询；未找到时返回 (nil, nil)
	GetByArcAndNumber(ctx context.Context, arcID string, number int) (*entity.Episode, error)
	ListByArc(ctx context.Context, arcID string) ([]*entity.Episode, error)
}

// LocatedChapter 携带层级定位信息的章节（arcs/episodes 连接查询结果）
type LocatedChapter struct {
	entity.Chapter
	Timeline   string `json:"timeline" gorm:"column:timeline_name"`
	Arc        string `json:"arc" gorm:"column:arc_name"`
	EpisodeNum int    `json:"episode" gorm:"column:episode_number"`
}

// Ref 返回章节位置引用
func (c *LocatedChapter) Ref() entity.ChapterRef {
	return entity.ChapterRef{Arc: c.Arc, Episode: c.EpisodeNum, Chapter: c.Number}
}

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	Create(ctx context.Context, chapter *entity.Chapter) error
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)
	// GetByEpisodeAndNumber 按自然键查询；未找到时返回 (nil, nil)
	GetByEpisodeAndNumber(ctx context.Context, episodeID string, number int) (*entity.Chapter, error)
	Update(ctx context.Context, chapter *entity.Chapter) error
	Delete(ctx context.Context, id string) error
	// ListLocated 返回带层级定位的章节；arcName 为空表示不过滤
	ListLocated(ctx context.Context, arcName string) ([]*LocatedChapter, error)
	// GetLocatedByPath 按文件路径查询带层级定位的章节；未找到时返回 (nil, nil)
	GetLocatedByPath(ctx context.Context, filePath string) (*LocatedChapter, error)
	// ListFileHashes 返回 file_path -> file_hash 映射（增量索引用）
	ListFileHashes(ctx context.Context) (map[string]string, error)
}

package entity

import (
	"fmt"
	"time"
)

// ReviewStatus 章节审阅状态（封闭枚举）
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusModified ReviewStatus = "modified"
)

// Valid 校验审阅状态取值
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected, ReviewStatusModified:
		return true
	}
	return false
}

// ChapterStats 章节统计信息
type ChapterStats struct {
	WordCount      int `json:"word_count,omitempty"`
	CharCount      int `json:"char_count,omitempty"`
	ParagraphCount int `json:"paragraph_count,omitempty"`
}

// Chapter 章节实体，叙事的原子单位
// 自然键为 (episode_id, number)；kink 为逗号分隔的内容标签
type Chapter struct {
	ID        string        `json:"id" gorm:"type:uuid;primaryKey"`
	EpisodeID string        `json:"episode_id" gorm:"type:uuid;uniqueIndex:idx_chapters_episode_number;not null"`
	Number    int           `json:"number" gorm:"uniqueIndex:idx_chapters_episode_number;not null"`
	Part      int           `json:"part,omitempty" gorm:"default:0"`
	POV       string        `json:"pov,omitempty" gorm:"column:pov;type:varchar(128)"`
	Title     string        `json:"title,omitempty" gorm:"type:varchar(255)"`
	Summary   string        `json:"summary,omitempty" gorm:"type:text"`
	Location  string        `json:"location,omitempty" gorm:"type:varchar(255)"`
	Outfit    string        `json:"outfit,omitempty" gorm:"type:varchar(255)"`
	Kink      string        `json:"kink,omitempty" gorm:"type:text"`
	Date      string        `json:"date,omitempty" gorm:"type:varchar(64)"`
	Stats     *ChapterStats `json:"stats,omitempty" gorm:"type:jsonb;serializer:json"`
	FilePath  string        `json:"file_path,omitempty" gorm:"type:varchar(512)"`
	FileHash  string        `json:"file_hash,omitempty" gorm:"type:varchar(64)"`
	Review    ReviewStatus  `json:"review" gorm:"type:varchar(16);default:'pending'"`
	CreatedAt time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建新章节
func NewChapter(episodeID string, number int) *Chapter {
	now := time.Now()
	return &Chapter{
		EpisodeID: episodeID,
		Number:    number,
		Review:    ReviewStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChapterRef 章节位置引用，用于一致性结论与顺序比较
type ChapterRef struct {
	Arc     string `json:"arc"`
	Episode int    `json:"episode"`
	Chapter int    `json:"chapter"`
}

// Key 返回规范章节键，如 "arc:ep01:ch003"，用于出场记录与候选集匹配
func (r ChapterRef) Key() string {
	return fmt.Sprintf("%s:ep%02d:ch%03d", r.Arc, r.Episode, r.Chapter)
}

// Before 按 (arc 字典序, episode, chapter) 升序比较
func (r ChapterRef) Before(other ChapterRef) bool {
	if r.Arc != other.Arc {
		return r.Arc < other.Arc
	}
	if r.Episode != other.Episode {
		return r.Episode < other.Episode
	}
	return r.Chapter < other.Chapter
}

package entity

import (
	"fmt"
	"time"
)

// Episode 集实体，隶属于故事弧
// 自然键为 (arc_id, number)
type Episode struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	ArcID       string    `json:"arc_id" gorm:"type:uuid;uniqueIndex:idx_episodes_arc_number;not null"`
	Number      int       `json:"number" gorm:"uniqueIndex:idx_episodes_arc_number;not null"`
	Title       string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	Slug        string    `json:"slug" gorm:"type:varchar(255)"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Episode) TableName() string {
	return "episodes"
}

// NewEpisode 创建新集；标题为占位字段，由创作流程补全
func NewEpisode(arcID string, number int) *Episode {
	now := time.Now()
	slug := fmt.Sprintf("ep%02d", number)
	return &Episode{
		ArcID:     arcID,
		Number:    number,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

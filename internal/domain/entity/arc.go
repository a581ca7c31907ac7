package entity

import (
	"time"
)

// Arc 故事弧实体，隶属于时间线
// 自然键为 (timeline_id, name)
type Arc struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	TimelineID  string    `json:"timeline_id" gorm:"type:uuid;uniqueIndex:idx_arcs_timeline_name;not null"`
	Name        string    `json:"name" gorm:"type:varchar(255);uniqueIndex:idx_arcs_timeline_name;not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(255)"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Order       int       `json:"order" gorm:"column:\"order\";default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Arc) TableName() string {
	return "arcs"
}

// NewArc 创建新故事弧；slug 与 order 为同步器分配的占位字段
func NewArc(timelineID, name string, order int) *Arc {
	now := time.Now()
	return &Arc{
		TimelineID: timelineID,
		Name:       name,
		Slug:       Slugify(name),
		Order:      order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// Timeline 时间线实体，层级结构的根
// 自然键为 name（区分大小写，唯一）
type Timeline struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Timeline) TableName() string {
	return "timelines"
}

// NewTimeline 创建新时间线
func NewTimeline(name string) *Timeline {
	now := time.Now()
	return &Timeline{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Slugify 由名称派生确定性的 slug：小写并以连字符替换空白
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

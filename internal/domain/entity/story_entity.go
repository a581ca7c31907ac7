package entity

import (
	"time"

	"github.com/lib/pq"
)

// StoryEntityType 实体类型
type StoryEntityType string

const (
	EntityTypeCharacter StoryEntityType = "CHARACTER"
	EntityTypeLocation  StoryEntityType = "LOCATION"
	EntityTypeEvent     StoryEntityType = "EVENT"
	EntityTypeObject    StoryEntityType = "OBJECT"
	EntityTypeEmotion   StoryEntityType = "EMOTION"
)

// Valid 校验实体类型取值
func (t StoryEntityType) Valid() bool {
	switch t {
	case EntityTypeCharacter, EntityTypeLocation, EntityTypeEvent, EntityTypeObject, EntityTypeEmotion:
		return true
	}
	return false
}

// StoryEntity 故事实体（角色/地点/事件/物品/情绪），按故事弧作用域存储
// 自然键为 (arc, type, name)
type StoryEntity struct {
	ID              string          `json:"id" gorm:"type:uuid;primaryKey"`
	Arc             string          `json:"arc" gorm:"type:varchar(255);uniqueIndex:idx_entities_arc_type_name;not null"`
	Type            StoryEntityType `json:"type" gorm:"type:varchar(32);uniqueIndex:idx_entities_arc_type_name;not null"`
	Name            string          `json:"name" gorm:"type:varchar(255);uniqueIndex:idx_entities_arc_type_name;not null"`
	Description     string          `json:"description,omitempty" gorm:"type:text"`
	Aliases         pq.StringArray  `json:"aliases,omitempty" gorm:"type:text[]"`
	Vector          []byte          `json:"-" gorm:"column:embedding;type:bytea"`
	Chapters        pq.StringArray  `json:"chapters,omitempty" gorm:"type:text[]"`
	ChapterCount    int             `json:"chapter_count" gorm:"default:0"`
	FirstAppearance string          `json:"first_appearance,omitempty" gorm:"type:varchar(64)"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (StoryEntity) TableName() string {
	return "entities"
}

// NewStoryEntity 创建新实体
func NewStoryEntity(arc, name string, entityType StoryEntityType) *StoryEntity {
	now := time.Now()
	return &StoryEntity{
		Arc:       arc,
		Name:      name,
		Type:      entityType,
		Aliases:   pq.StringArray{},
		Chapters:  pq.StringArray{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordAppearance 记录出场章节
func (e *StoryEntity) RecordAppearance(chapterRef string) {
	for _, c := range e.Chapters {
		if c == chapterRef {
			return
		}
	}
	if e.FirstAppearance == "" {
		e.FirstAppearance = chapterRef
	}
	e.Chapters = append(e.Chapters, chapterRef)
	e.ChapterCount = len(e.Chapters)
	e.UpdatedAt = time.Now()
}

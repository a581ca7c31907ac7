package entity

import (
	"time"

	"github.com/lib/pq"
)

// RelationType 关系类型
type RelationType string

const (
	// 角色关系
	RelationLoves       RelationType = "LOVES"
	RelationHates       RelationType = "HATES"
	RelationKnows       RelationType = "KNOWS"
	RelationRelatedTo   RelationType = "RELATED_TO"
	RelationFriendsWith RelationType = "FRIENDS_WITH"
	RelationEnemiesWith RelationType = "ENEMIES_WITH"

	// 空间关系
	RelationLocatedIn RelationType = "LOCATED_IN"
	RelationLivesIn   RelationType = "LIVES_IN"
	RelationTravelsTo RelationType = "TRAVELS_TO"

	// 时间/因果关系
	RelationHappensBefore RelationType = "HAPPENS_BEFORE"
	RelationHappensAfter  RelationType = "HAPPENS_AFTER"
	RelationCauses        RelationType = "CAUSES"

	// 物品关系
	RelationOwns  RelationType = "OWNS"
	RelationUses  RelationType = "USES"
	RelationSeeks RelationType = "SEEKS"
)

// Valid 校验关系类型取值
func (t RelationType) Valid() bool {
	switch t {
	case RelationLoves, RelationHates, RelationKnows, RelationRelatedTo,
		RelationFriendsWith, RelationEnemiesWith, RelationLocatedIn,
		RelationLivesIn, RelationTravelsTo, RelationHappensBefore,
		RelationHappensAfter, RelationCauses, RelationOwns, RelationUses,
		RelationSeeks:
		return true
	}
	return false
}

// Relation 实体间的有向加权关系，按故事弧作用域存储
// 同一 (arc, source, target, type) 允许多条记录，以各自的出场章节列表区分
type Relation struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	Arc          string         `json:"arc" gorm:"type:varchar(255);index;not null"`
	SourceEntity string         `json:"source_entity" gorm:"type:varchar(255);index;not null"`
	TargetEntity string         `json:"target_entity" gorm:"type:varchar(255);index;not null"`
	Type         RelationType   `json:"type" gorm:"type:varchar(32);not null"`
	Description  string         `json:"description,omitempty" gorm:"type:text"`
	Weight       float64        `json:"weight" gorm:"default:0.5"`
	Chapters     pq.StringArray `json:"chapters,omitempty" gorm:"type:text[]"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Relation) TableName() string {
	return "relations"
}

// NewRelation 创建新关系
func NewRelation(arc, source, target string, relType RelationType) *Relation {
	now := time.Now()
	return &Relation{
		Arc:          arc,
		SourceEntity: source,
		TargetEntity: target,
		Type:         relType,
		Weight:       0.5,
		Chapters:     pq.StringArray{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ClampWeight 将权重收敛到 [0,1]
func (r *Relation) ClampWeight() {
	if r.Weight < 0 {
		r.Weight = 0
	} else if r.Weight > 1 {
		r.Weight = 1
	}
}

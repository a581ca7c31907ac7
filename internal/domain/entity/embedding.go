package entity

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/lib/pq"
)

// Embedding 向量行，属于章节；章节删除时必须级联清理
type Embedding struct {
	ID         string            `json:"id" gorm:"type:uuid;primaryKey"`
	ChapterID  string            `json:"chapter_id" gorm:"type:uuid;index;not null"`
	Content    string            `json:"content" gorm:"type:text"`
	Vector     []byte            `json:"-" gorm:"column:embedding;type:bytea"`
	Characters pq.StringArray    `json:"characters,omitempty" gorm:"type:text[]"`
	Metadata   map[string]string `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt  time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Embedding) TableName() string {
	return "embeddings"
}

// SetVector 以 float32 little-endian 编码写入向量
func (e *Embedding) SetVector(vec []float32) {
	e.Vector = EncodeVector(vec)
}

// GetVector 解码存储的向量
func (e *Embedding) GetVector() []float32 {
	return DecodeVector(e.Vector)
}

// EncodeVector 将 float32 向量编码为 little-endian 字节串
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector 解码 little-endian 字节串为 float32 向量
func DecodeVector(b []byte) []float32 {
	n := len(b) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec
}

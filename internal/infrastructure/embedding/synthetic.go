package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// SyntheticProvider 确定性嵌入提供者
// 由文本哈希派生向量，相同输入恒得相同向量，用于离线索引和测试
type SyntheticProvider struct {
	model     string
	dimension int
}

// NewSyntheticProvider 创建确定性嵌入提供者
func NewSyntheticProvider(model string, dimension int) *SyntheticProvider {
	if model == "" {
		model = "synthetic"
	}
	if dimension <= 0 {
		dimension = 768
	}
	return &SyntheticProvider{model: model, dimension: dimension}
}

// Embed 将一批文本编码为单位向量
func (p *SyntheticProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.encode(text)
	}
	return vectors, nil
}

// encode 由 SHA-256 种子扩展出归一化向量
func (p *SyntheticProvider) encode(text string) []float32 {
	seed := sha256.Sum256([]byte(text))

	vec := make([]float32, p.dimension)
	var norm float64
	buf := seed[:]
	counter := uint32(0)
	for i := 0; i < p.dimension; i++ {
		off := (i * 4) % (len(buf) - 4)
		if i > 0 && off == 0 {
			// 种子耗尽后重新哈希扩展
			counter++
			next := sha256.Sum256(append(buf, byte(counter), byte(counter>>8)))
			buf = next[:]
		}
		u := binary.LittleEndian.Uint32(buf[off : off+4])
		// 映射到 [-1, 1)
		v := float64(int32(u)) / float64(math.MaxInt32)
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// Model 返回模型标识
func (p *SyntheticProvider) Model() string {
	return p.model
}

// Dimension 返回向量维度
func (p *SyntheticProvider) Dimension() int {
	return p.dimension
}

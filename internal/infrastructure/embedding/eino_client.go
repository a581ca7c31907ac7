package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"echoes-index-api/internal/config"
)

// EinoProvider 基于 Eino OpenAI 适配器的嵌入提供者
type EinoProvider struct {
	embedder  embedding.Embedder
	model     string
	dimension int
	batchSize int
}

// NewEinoProvider 创建基于 Eino 的嵌入提供者
func NewEinoProvider(ctx context.Context, cfg *config.EmbeddingConfig) (*EinoProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	return &EinoProvider{
		embedder:  embedder,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: batchSize,
	}, nil
}

// Embed 将一批文本编码为向量
func (p *EinoProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += p.batchSize {
		end := i + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := p.embedder.EmbedStrings(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}

		for _, v := range vectors {
			vec := make([]float32, len(v))
			for j, x := range v {
				vec[j] = float32(x)
			}
			all = append(all, vec)
		}
	}

	return all, nil
}

// Model 返回模型标识
func (p *EinoProvider) Model() string {
	return p.model
}

// Dimension 返回向量维度
func (p *EinoProvider) Dimension() int {
	return p.dimension
}

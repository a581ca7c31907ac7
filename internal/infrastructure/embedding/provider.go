// Package embedding 提供向量嵌入服务客户端
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"echoes-index-api/internal/config"
	"echoes-index-api/pkg/metrics"
)

var tracer = otel.Tracer("embedding")

// Provider 向量嵌入提供者接口
// 句柄由调用方创建并传入，便于跨进程复用同一模型配置
type Provider interface {
	// Embed 将一批文本编码为向量，结果顺序与输入一致
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model 返回模型标识
	Model() string
	// Dimension 返回向量维度
	Dimension() int
}

// NewProvider 根据配置创建嵌入提供者
func NewProvider(ctx context.Context, cfg *config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewEinoProvider(ctx, cfg)
	case "synthetic":
		return NewSyntheticProvider(cfg.Model, cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// instrumented 为提供者补充指标和追踪
type instrumented struct {
	inner    Provider
	provider string
}

// WithInstrumentation 包装提供者以记录调用指标
func WithInstrumentation(inner Provider, providerName string) Provider {
	return &instrumented{inner: inner, provider: providerName}
}

func (p *instrumented) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracer.Start(ctx, "embedding.Embed",
		trace.WithAttributes(
			attribute.String("embedding.model", p.inner.Model()),
			attribute.Int("embedding.batch_size", len(texts)),
		))
	defer span.End()

	start := time.Now()
	vectors, err := p.inner.Embed(ctx, texts)
	metrics.EmbeddingCallDuration.WithLabelValues(p.provider, p.inner.Model()).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingCallTotal.WithLabelValues(p.provider, p.inner.Model(), status).Inc()

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return vectors, nil
}

func (p *instrumented) Model() string {
	return p.inner.Model()
}

func (p *instrumented) Dimension() int {
	return p.inner.Dimension()
}

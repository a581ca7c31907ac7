// Package stats 提供语料聚合统计
package stats

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"echoes-index-api/internal/domain/repository"
)

var tracer = otel.Tracer("stats")

// Filter 统计过滤条件
type Filter struct {
	Arc     string
	Episode int
	POV     string
}

// Summary 聚合统计结果
type Summary struct {
	Chapters   int            `json:"chapters"`
	Words      int            `json:"words"`
	Characters int            `json:"characters"`
	Paragraphs int            `json:"paragraphs"`
	ByArc      map[string]int `json:"by_arc"`
	ByPOV      map[string]int `json:"by_pov"`
}

// Service 统计服务
type Service struct {
	chapters repository.ChapterRepository
}

// NewService 创建统计服务
func NewService(chapters repository.ChapterRepository) *Service {
	return &Service{chapters: chapters}
}

// Summarize 聚合章节统计
func (s *Service) Summarize(ctx context.Context, filter Filter) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "stats.Service.Summarize",
		trace.WithAttributes(attribute.String("arc", filter.Arc)))
	defer span.End()

	located, err := s.chapters.ListLocated(ctx, filter.Arc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	summary := &Summary{
		ByArc: make(map[string]int),
		ByPOV: make(map[string]int),
	}

	for _, ch := range located {
		if filter.Episode > 0 && ch.EpisodeNum != filter.Episode {
			continue
		}
		if filter.POV != "" && ch.POV != filter.POV {
			continue
		}

		summary.Chapters++
		summary.ByArc[ch.Arc]++
		if ch.POV != "" {
			summary.ByPOV[ch.POV]++
		}
		if ch.Stats != nil {
			summary.Words += ch.Stats.WordCount
			summary.Characters += ch.Stats.CharCount
			summary.Paragraphs += ch.Stats.ParagraphCount
		}
	}

	span.SetAttributes(attribute.Int("chapters", summary.Chapters))
	return summary, nil
}

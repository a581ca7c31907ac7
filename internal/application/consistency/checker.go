// Package consistency 提供叙事一致性检查
// 每个检查都是对扫描语料的纯函数：逐章提取候选信号，成对或顺序比较，产出 Issue
package consistency

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"echoes-index-api/internal/config"
	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
	"echoes-index-api/internal/infrastructure/embedding"
	"echoes-index-api/pkg/logger"
	"echoes-index-api/pkg/metrics"
)

var tracer = otel.Tracer("consistency")

// ChapterDoc 检查器的输入单元：章节定位加正文
type ChapterDoc struct {
	Ref     entity.ChapterRef
	Kink    string
	Content string
}

// Report 一次检查运行的汇总
type Report struct {
	Arc      string          `json:"arc"`
	Chapters int             `json:"chapters"`
	Issues   []*entity.Issue `json:"issues"`
	Duration float64         `json:"duration_seconds"`
}

// Runner 一致性检查执行器
type Runner struct {
	chapters  repository.ChapterRepository
	relations repository.RelationRepository
	provider  embedding.Provider

	contentRoot string
	cfg         config.ConsistencyConfig
}

// NewRunner 创建检查执行器
func NewRunner(
	chapters repository.ChapterRepository,
	relations repository.RelationRepository,
	provider embedding.Provider,
	contentRoot string,
	cfg config.ConsistencyConfig,
) *Runner {
	return &Runner{
		chapters:    chapters,
		relations:   relations,
		provider:    provider,
		contentRoot: contentRoot,
		cfg:         cfg,
	}
}

// Check 对一个故事弧运行全部检查
func (r *Runner) Check(ctx context.Context, arc string) (*Report, error) {
	ctx, span := tracer.Start(ctx, "consistency.Runner.Check",
		trace.WithAttributes(attribute.String("arc", arc)))
	defer span.End()

	start := time.Now()

	docs, err := r.loadChapters(ctx, arc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	report := &Report{Arc: arc, Chapters: len(docs)}

	checks := []struct {
		name string
		run  func() ([]*entity.Issue, error)
	}{
		{"first_time", func() ([]*entity.Issue, error) {
			return CheckFirstTimeClaims(ctx, docs, r.provider, r.cfg.SimilarityThreshold)
		}},
		{"kink_first", func() ([]*entity.Issue, error) {
			return CheckKinkFirstDuplicates(docs), nil
		}},
		{"relation_jump", func() ([]*entity.Issue, error) {
			return r.checkRelationJumps(ctx, arc)
		}},
	}

	for _, check := range checks {
		checkStart := time.Now()
		issues, err := check.run()
		metrics.ConsistencyCheckDuration.WithLabelValues(check.name).Observe(time.Since(checkStart).Seconds())
		if err != nil {
			// 单项检查失败不阻断其余检查
			logger.Warn(ctx, "consistency check failed", "check", check.name, "error", err)
			continue
		}
		for _, issue := range issues {
			metrics.ConsistencyIssuesTotal.WithLabelValues(string(issue.Type), string(issue.Severity)).Inc()
		}
		report.Issues = append(report.Issues, issues...)
	}

	report.Duration = time.Since(start).Seconds()
	span.SetAttributes(attribute.Int("issues.count", len(report.Issues)))
	return report, nil
}

// checkRelationJumps 加载弧作用域关系并运行情感跳变检查
func (r *Runner) checkRelationJumps(ctx context.Context, arc string) ([]*entity.Issue, error) {
	relations, err := r.relations.ListByArc(ctx, arc, nil)
	if err != nil {
		return nil, err
	}
	classifier := NewSentimentClassifier(r.cfg.PositiveRelations, r.cfg.NegativeRelations)
	return CheckRelationJumps(relations, classifier, r.cfg.WeightDropThreshold), nil
}

// loadChapters 加载弧作用域章节及正文；无法解析的章节跳过
func (r *Runner) loadChapters(ctx context.Context, arc string) ([]*ChapterDoc, error) {
	located, err := r.chapters.ListLocated(ctx, arc)
	if err != nil {
		return nil, err
	}

	docs := make([]*ChapterDoc, 0, len(located))
	for _, ch := range located {
		doc := &ChapterDoc{
			Ref:  ch.Ref(),
			Kink: ch.Kink,
		}
		if ch.FilePath != "" {
			raw, err := os.ReadFile(filepath.Join(r.contentRoot, filepath.FromSlash(ch.FilePath)))
			if err != nil {
				// 坏文件不阻断整个语料的检查
				logger.Warn(ctx, "skipping unreadable chapter", "path", ch.FilePath, "error", err)
				continue
			}
			doc.Content = string(raw)
		}
		docs = append(docs, doc)
	}

	sortDocs(docs)
	return docs, nil
}

// sortDocs 按 (arc, episode, chapter) 升序排列
func sortDocs(docs []*ChapterDoc) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Ref.Before(docs[j].Ref)
	})
}

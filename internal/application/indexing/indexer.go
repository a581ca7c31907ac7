package indexing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"echoes-index-api/internal/application/vector"
	"echoes-index-api/internal/domain/repository"
	"echoes-index-api/internal/infrastructure/embedding"
	"echoes-index-api/pkg/logger"
	"echoes-index-api/pkg/metrics"
)

// IndexResult 索引批次结果，所有部分成功都按单项计数显式上报
type IndexResult struct {
	Indexed         int        `json:"indexed"`
	Updated         int        `json:"updated"`
	Deleted         int        `json:"deleted"`
	Skipped         int        `json:"skipped"`
	Sync            SyncCounts `json:"sync"`
	DurationSeconds float64    `json:"duration_seconds"`
}

// IndexOptions 索引参数
type IndexOptions struct {
	// Arc 只索引指定故事弧；空表示全部
	Arc string
	// Force 忽略哈希对比，全量重建
	Force bool
}

// Indexer 章节索引器
// 扫描内容目录，同步层级表，按哈希增量向量化
type Indexer struct {
	scanner    *Scanner
	sync       *Synchronizer
	chapters   repository.ChapterRepository
	store      *vector.Store
	provider   embedding.Provider
	transactor repository.Transactor

	embedMaxRunes int
}

// NewIndexer 创建章节索引器
func NewIndexer(
	scanner *Scanner,
	sync *Synchronizer,
	chapters repository.ChapterRepository,
	store *vector.Store,
	provider embedding.Provider,
	transactor repository.Transactor,
	embedMaxRunes int,
) *Indexer {
	if embedMaxRunes <= 0 {
		embedMaxRunes = 2000
	}
	return &Indexer{
		scanner:       scanner,
		sync:          sync,
		chapters:      chapters,
		store:         store,
		provider:      provider,
		transactor:    transactor,
		embedMaxRunes: embedMaxRunes,
	}
}

// Index 执行一次索引批次
func (ix *Indexer) Index(ctx context.Context, opts IndexOptions) (*IndexResult, error) {
	ctx, span := tracer.Start(ctx, "indexing.Indexer.Index",
		trace.WithAttributes(
			attribute.String("index.arc", opts.Arc),
			attribute.Bool("index.force", opts.Force),
		))
	defer span.End()

	start := time.Now()
	result := &IndexResult{}

	descriptors, err := ix.scanner.Scan(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("content scan failed: %w", err)
	}

	if opts.Arc != "" {
		filtered := descriptors[:0]
		for _, d := range descriptors {
			if d.Arc == opts.Arc {
				filtered = append(filtered, d)
			}
		}
		descriptors = filtered
	}

	logger.Info(ctx, "content scan complete", "chapters", len(descriptors), "arc", opts.Arc)

	// 增量判定的哈希快照必须先于层级同步取得：
	// 本批新建的章节行不参与对比
	existingHashes := map[string]string{}
	if !opts.Force {
		existingHashes, err = ix.chapters.ListFileHashes(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to load file hashes: %w", err)
		}
	}

	// 层级同步：向量行必须挂在已存在的章节上
	counts, err := ix.sync.SyncChapters(ctx, descriptors)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hierarchy sync failed: %w", err)
	}
	result.Sync = *counts

	var toIndex []*ChapterDescriptor
	for _, d := range descriptors {
		if existingHashes[d.FilePath] != d.FileHash {
			toIndex = append(toIndex, d)
		} else {
			result.Skipped++
			metrics.IndexChaptersTotal.WithLabelValues(d.Arc, "skipped").Inc()
		}
	}

	// 已消失的文件：清理章节与向量
	currentPaths := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		currentPaths[d.FilePath] = struct{}{}
	}
	for path := range existingHashes {
		if _, ok := currentPaths[path]; ok {
			continue
		}
		// 弧过滤时只清理该弧作用域内的文件
		if opts.Arc != "" && !strings.HasPrefix(path, opts.Arc+"/") {
			continue
		}
		deleted, err := ix.deleteByPath(ctx, path)
		if err != nil {
			logger.Warn(ctx, "failed to delete removed chapter", "path", path, "error", err)
			continue
		}
		if deleted {
			result.Deleted++
		}
	}

	if len(toIndex) == 0 {
		result.DurationSeconds = time.Since(start).Seconds()
		return result, nil
	}

	// 向量化：正文截断到 embedMaxRunes
	texts := make([]string, len(toIndex))
	for i, d := range toIndex {
		texts[i] = truncateRunes(d.Content, ix.embedMaxRunes)
	}
	vectors, err := ix.provider.Embed(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(toIndex) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(toIndex))
	}

	// 逐章落库，单章事务内替换向量行
	for i, d := range toIndex {
		isUpdate := false
		if _, ok := existingHashes[d.FilePath]; ok {
			isUpdate = true
		}

		if err := ix.indexChapter(ctx, d, vectors[i]); err != nil {
			logger.Warn(ctx, "failed to index chapter",
				"arc", d.Arc, "episode", d.Episode, "chapter", d.Chapter, "error", err)
			metrics.IndexChaptersTotal.WithLabelValues(d.Arc, "failed").Inc()
			continue
		}

		if isUpdate {
			result.Updated++
			metrics.IndexChaptersTotal.WithLabelValues(d.Arc, "updated").Inc()
		} else {
			result.Indexed++
			metrics.IndexChaptersTotal.WithLabelValues(d.Arc, "indexed").Inc()
		}
	}

	result.DurationSeconds = time.Since(start).Seconds()
	metrics.IndexDuration.WithLabelValues(opts.Arc).Observe(result.DurationSeconds)

	logger.Info(ctx, "index batch complete",
		"indexed", result.Indexed, "updated", result.Updated,
		"deleted", result.Deleted, "skipped", result.Skipped,
		"duration_seconds", result.DurationSeconds)
	return result, nil
}

// indexChapter 单章原子落库：更新章节行并整体替换向量行
func (ix *Indexer) indexChapter(ctx context.Context, d *ChapterDescriptor, vec []float32) error {
	return ix.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		located, err := ix.chapters.GetLocatedByPath(txCtx, d.FilePath)
		if err != nil {
			return err
		}
		if located == nil {
			// 同步阶段分支被跳过的记录
			return fmt.Errorf("chapter row missing for %s", d.FilePath)
		}

		chapter := located.Chapter
		chapter.POV = d.POV
		chapter.Title = d.Title
		chapter.Location = d.Location
		chapter.Date = d.Date
		chapter.Kink = d.Kink
		chapter.FileHash = d.FileHash
		chapter.Stats = ComputeStats(d.Content)
		if err := ix.chapters.Update(txCtx, &chapter); err != nil {
			return err
		}

		if err := ix.store.DeleteByChapter(txCtx, chapter.ID); err != nil {
			return err
		}

		metadata := map[string]string{
			"arc":       d.Arc,
			"episode":   strconv.Itoa(d.Episode),
			"chapter":   strconv.Itoa(d.Chapter),
			"pov":       d.POV,
			"title":     d.Title,
			"file_path": d.FilePath,
		}
		_, err = ix.store.Insert(txCtx, chapter.ID, truncateRunes(d.Content, ix.embedMaxRunes), vec, []string{d.POV}, metadata)
		return err
	})
}

// deleteByPath 删除已从内容目录消失的章节及其向量行
func (ix *Indexer) deleteByPath(ctx context.Context, path string) (bool, error) {
	var deleted bool
	err := ix.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		located, err := ix.chapters.GetLocatedByPath(txCtx, path)
		if err != nil {
			return err
		}
		if located == nil {
			return nil
		}
		if err := ix.store.DeleteByChapter(txCtx, located.Chapter.ID); err != nil {
			return err
		}
		if err := ix.chapters.Delete(txCtx, located.Chapter.ID); err != nil {
			return err
		}
		metrics.IndexChaptersTotal.WithLabelValues(located.Arc, "deleted").Inc()
		deleted = true
		return nil
	})
	return deleted, err
}

// truncateRunes 按 rune 数截断字符串
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

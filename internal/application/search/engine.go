// Package search 提供混合检索编排
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"echoes-index-api/internal/application/vector"
	"echoes-index-api/internal/config"
	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
	"echoes-index-api/internal/infrastructure/embedding"
	"echoes-index-api/internal/infrastructure/persistence/redis"
	"echoes-index-api/pkg/logger"
	"echoes-index-api/pkg/metrics"
)

var tracer = otel.Tracer("search")

// Input 检索请求
type Input struct {
	Query         string   `json:"query"`
	TopK          int      `json:"top_k"`
	Characters    []string `json:"characters,omitempty"`
	AllCharacters bool     `json:"all_characters,omitempty"`
	Arc           string   `json:"arc,omitempty"`
	POV           string   `json:"pov,omitempty"`
	UseGraphRAG   *bool    `json:"use_graphrag,omitempty"`
	TimeoutMs     int      `json:"timeout_ms,omitempty"`
}

// Result 单条检索结果；graphrag 与 vector 两条路径的结果形状一致
type Result struct {
	Content    string            `json:"content"`
	Score      float64           `json:"score"`
	Characters []string          `json:"characters,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Source     string            `json:"source"` // graphrag | vector
}

// Engine 混合检索编排器
// graphrag 路径受超时约束，超时、关闭或失败时透明回退到纯向量检索
type Engine struct {
	provider  embedding.Provider
	store     *vector.Store
	entities  repository.EntityRepository
	relations repository.RelationRepository
	cache     *redis.Cache // 可为 nil，查询向量缓存

	cfg config.SearchConfig
}

// NewEngine 创建检索编排器
func NewEngine(
	provider embedding.Provider,
	store *vector.Store,
	entities repository.EntityRepository,
	relations repository.RelationRepository,
	cache *redis.Cache,
	cfg config.SearchConfig,
) *Engine {
	return &Engine{
		provider:  provider,
		store:     store,
		entities:  entities,
		relations: relations,
		cache:     cache,
		cfg:       cfg,
	}
}

// Search 执行混合检索
func (e *Engine) Search(ctx context.Context, in Input) ([]*Result, error) {
	ctx, span := tracer.Start(ctx, "search.Engine.Search",
		trace.WithAttributes(
			attribute.String("search.arc", in.Arc),
			attribute.Int("search.top_k", in.TopK),
		))
	defer span.End()

	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if in.TopK <= 0 {
		in.TopK = e.cfg.DefaultTopK
	}
	if e.cfg.MaxTopK > 0 && in.TopK > e.cfg.MaxTopK {
		in.TopK = e.cfg.MaxTopK
	}

	var cacheKey string
	if e.cache != nil && e.cfg.ResultCacheTTL > 0 {
		cacheKey = e.resultCacheKey(in)
		if data, err := e.cache.Get(ctx, cacheKey); err == nil {
			var cached []*Result
			if json.Unmarshal(data, &cached) == nil {
				span.SetAttributes(attribute.Bool("search.cache_hit", true))
				return cached, nil
			}
		}
	}

	queryVec, err := e.embedQuery(ctx, in.Query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	useGraph := e.cfg.GraphRAG
	if in.UseGraphRAG != nil {
		useGraph = *in.UseGraphRAG
	}

	if useGraph {
		results, err := e.graphPath(ctx, in, queryVec)
		if err == nil {
			span.SetAttributes(attribute.String("search.source", "graphrag"))
			e.cacheResults(ctx, cacheKey, results)
			return results, nil
		}
		// graphrag 失败只降级，不上浮
		reason := "error"
		if errIsTimeout(err) {
			reason = "timeout"
		}
		metrics.SearchFallbackTotal.WithLabelValues(reason).Inc()
		logger.Warn(ctx, "graphrag path failed, falling back to vector search", "reason", reason, "error", err)
	} else {
		metrics.SearchFallbackTotal.WithLabelValues("disabled").Inc()
	}

	results, err := e.vectorPath(ctx, in, queryVec)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("search.source", "vector"))
	e.cacheResults(ctx, cacheKey, results)
	return results, nil
}

// vectorPath 纯向量检索路径
func (e *Engine) vectorPath(ctx context.Context, in Input, queryVec []float32) ([]*Result, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues("vector").Observe(time.Since(start).Seconds())
	}()

	matches, err := e.store.Search(ctx, queryVec, vector.SearchOptions{
		Characters:    in.Characters,
		AllCharacters: in.AllCharacters,
		Metadata:      metadataFilter(in),
		Limit:         in.TopK,
	})
	if err != nil {
		return nil, err
	}

	return toResults(matches, "vector"), nil
}

// graphPath 图增强检索路径
// 候选章节通过共享实体与关系扩展；整个路径受 timeout 约束，
// 被放弃的尝试不落任何持久化状态
func (e *Engine) graphPath(ctx context.Context, in Input, queryVec []float32) ([]*Result, error) {
	timeout := e.cfg.GraphTimeout
	if in.TimeoutMs > 0 {
		timeout = time.Duration(in.TimeoutMs) * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	graphCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues("graphrag").Observe(time.Since(start).Seconds())
	}()

	var (
		matches  []*vector.Match
		boostSet map[string]struct{}
	)

	g, gctx := errgroup.WithContext(graphCtx)

	g.Go(func() error {
		var err error
		// 过采样，boost 重排后再截断
		matches, err = e.store.Search(gctx, queryVec, vector.SearchOptions{
			Characters:    in.Characters,
			AllCharacters: in.AllCharacters,
			Metadata:      metadataFilter(in),
			Limit:         in.TopK * 3,
		})
		return err
	})

	g.Go(func() error {
		var err error
		boostSet, err = e.expandCandidates(gctx, in)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 命中图扩展候选集的结果获得加权
	const graphBoost = 0.1
	for _, m := range matches {
		if _, ok := boostSet[chapterKey(m.Embedding.Metadata)]; ok {
			m.Similarity += graphBoost
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > in.TopK {
		matches = matches[:in.TopK]
	}

	return toResults(matches, "graphrag"), nil
}

// expandCandidates 由查询词匹配实体，经关系扩展一跳，收集候选章节键
func (e *Engine) expandCandidates(ctx context.Context, in Input) (map[string]struct{}, error) {
	candidates := make(map[string]struct{})

	seeds, err := e.entities.SearchByName(ctx, in.Arc, in.Query, 10)
	if err != nil {
		return nil, err
	}
	for _, name := range in.Characters {
		byName, err := e.entities.SearchByName(ctx, in.Arc, name, 3)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, byName...)
	}

	seen := make(map[string]struct{})
	for _, ent := range seeds {
		if _, dup := seen[ent.Name]; dup {
			continue
		}
		seen[ent.Name] = struct{}{}

		for _, ch := range ent.Chapters {
			candidates[ch] = struct{}{}
		}

		// 一跳关系扩展
		rels, err := e.relations.ListByArc(ctx, ent.Arc, &repository.RelationFilter{Entity: ent.Name})
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			for _, ch := range rel.Chapters {
				candidates[ch] = struct{}{}
			}
		}
	}

	return candidates, nil
}

// resultCacheKey 结果缓存键
// 弧段落入键名，索引写入后可按 search:res:<arc>:* 失效；
// 未限定弧的请求归入 all 段
func (e *Engine) resultCacheKey(in Input) string {
	payload, _ := json.Marshal(in)
	sum := sha256.Sum256(append([]byte(e.provider.Model()+":"), payload...))
	arc := in.Arc
	if arc == "" {
		arc = "all"
	}
	return fmt.Sprintf("search:res:%s:%s", arc, hex.EncodeToString(sum[:16]))
}

// cacheResults 结果写入缓存；写失败不影响返回
func (e *Engine) cacheResults(ctx context.Context, key string, results []*Result) {
	if key == "" {
		return
	}
	if err := e.cache.Set(ctx, key, results, e.cfg.ResultCacheTTL); err != nil {
		logger.Warn(ctx, "failed to cache search results", "key", key, "error", err)
	}
}

// embedQuery 向量化查询文本，结果经 redis 缓存
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if e.cache == nil {
		return e.embedDirect(ctx, query)
	}

	sum := sha256.Sum256([]byte(e.provider.Model() + ":" + query))
	key := "search:qvec:" + hex.EncodeToString(sum[:16])

	data, err := e.cache.GetOrLoadSafe(ctx, key, e.cfg.QueryCacheTTL, func() (interface{}, error) {
		return e.embedDirect(ctx, query)
	})
	if err != nil {
		// 缓存故障不阻断检索
		return e.embedDirect(ctx, query)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return e.embedDirect(ctx, query)
	}
	return vec, nil
}

func (e *Engine) embedDirect(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// metadataFilter 构造 arc/pov 精确匹配过滤
func metadataFilter(in Input) map[string]string {
	filter := make(map[string]string)
	if in.Arc != "" {
		filter["arc"] = in.Arc
	}
	if in.POV != "" {
		filter["pov"] = in.POV
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// chapterKey 从向量行元数据构造章节键，与实体出场记录的键格式一致
func chapterKey(meta map[string]string) string {
	episode, _ := strconv.Atoi(meta["episode"])
	chapter, _ := strconv.Atoi(meta["chapter"])
	ref := entity.ChapterRef{Arc: meta["arc"], Episode: episode, Chapter: chapter}
	return ref.Key()
}

func toResults(matches []*vector.Match, source string) []*Result {
	results := make([]*Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, &Result{
			Content:    m.Embedding.Content,
			Score:      m.Similarity,
			Characters: m.Embedding.Characters,
			Metadata:   m.Embedding.Metadata,
			Source:     source,
		})
	}
	return results
}

func errIsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

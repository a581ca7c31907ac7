// Package main 检索与一致性引擎服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"echoes-index-api/internal/application/consistency"
	"echoes-index-api/internal/application/graph"
	"echoes-index-api/internal/application/indexing"
	"echoes-index-api/internal/application/search"
	"echoes-index-api/internal/application/stats"
	"echoes-index-api/internal/application/vector"
	"echoes-index-api/internal/config"
	"echoes-index-api/internal/infrastructure/embedding"
	"echoes-index-api/internal/infrastructure/persistence/postgres"
	"echoes-index-api/internal/infrastructure/persistence/redis"
	"echoes-index-api/internal/interfaces/http/handler"
	"echoes-index-api/internal/interfaces/http/router"
	"echoes-index-api/pkg/logger"
	"echoes-index-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting indexer-svc",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// PostgreSQL
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	if err := pgClient.AutoMigrate(); err != nil {
		logger.Fatal(ctx, "failed to migrate schema", err)
	}

	// Redis（可选，不可用时降级为无缓存）
	var redisClient *redis.Client
	var cache *redis.Cache
	if cfg.Cache.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			log.Warn("redis unavailable, query cache disabled", "error", err)
		} else {
			defer func() { _ = redisClient.Close() }()
			cache = redis.NewCache(redisClient)
		}
	}

	// 仓储
	timelineRepo := postgres.NewTimelineRepository(pgClient)
	arcRepo := postgres.NewArcRepository(pgClient)
	episodeRepo := postgres.NewEpisodeRepository(pgClient)
	chapterRepo := postgres.NewChapterRepository(pgClient)
	embeddingRepo := postgres.NewEmbeddingRepository(pgClient)
	entityRepo := postgres.NewEntityRepository(pgClient)
	relationRepo := postgres.NewRelationRepository(pgClient)
	txManager := postgres.NewTxManager(pgClient)

	// Embedding 提供者
	provider, err := embedding.NewProvider(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedding provider", err)
	}
	provider = embedding.WithInstrumentation(provider, cfg.Embedding.Provider)

	// 应用服务
	store := vector.NewStore(embeddingRepo)
	scanner := indexing.NewScanner(cfg.Content.Root, cfg.Content.Timeline)
	synchronizer := indexing.NewSynchronizer(timelineRepo, arcRepo, episodeRepo, chapterRepo)
	indexer := indexing.NewIndexer(scanner, synchronizer, chapterRepo, store, provider, txManager, cfg.Content.EmbedMaxRunes)
	graphBuilder := graph.NewBuilder(entityRepo, relationRepo)
	searchEngine := search.NewEngine(provider, store, entityRepo, relationRepo, cache, cfg.Search)
	consistencyRunner := consistency.NewRunner(chapterRepo, relationRepo, provider, cfg.Content.Root, cfg.Consistency)
	statsService := stats.NewService(chapterRepo)

	r := router.New(cfg, router.Handlers{
		Health:      handler.NewHealthHandler(pgClient, redisClient),
		Index:       handler.NewIndexHandler(indexer, cache),
		Search:      handler.NewSearchHandler(searchEngine),
		Graph:       handler.NewGraphHandler(graphBuilder),
		Consistency: handler.NewConsistencyHandler(consistencyRunner),
		Entity:      handler.NewEntityHandler(entityRepo, relationRepo),
		Stats:       handler.NewStatsHandler(statsService),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

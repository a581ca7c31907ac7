package handler

import (
	"github.com/gin-gonic/gin"

	"echoes-index-api/internal/application/indexing"
	"echoes-index-api/internal/infrastructure/persistence/redis"
	"echoes-index-api/internal/interfaces/http/dto"
	"echoes-index-api/pkg/errors"
	"echoes-index-api/pkg/logger"
)

// IndexHandler 索引处理器
type IndexHandler struct {
	indexer *indexing.Indexer
	cache   *redis.Cache // 可为 nil
}

// NewIndexHandler 创建索引处理器
func NewIndexHandler(indexer *indexing.Indexer, cache *redis.Cache) *IndexHandler {
	return &IndexHandler{
		indexer: indexer,
		cache:   cache,
	}
}

// Index 执行索引批次
// @Summary 索引内容目录
// @Description 扫描内容目录，同步层级并增量向量化章节
// @Tags Index
// @Accept json
// @Produce json
// @Param body body dto.IndexRequest true "索引请求"
// @Success 200 {object} dto.Response[indexing.IndexResult]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/index [post]
func (h *IndexHandler) Index(c *gin.Context) {
	var req dto.IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	result, err := h.indexer.Index(ctx, indexing.IndexOptions{
		Arc:   req.Arc,
		Force: req.Force,
	})
	if err != nil {
		dto.AppError(c, errors.Wrap(err, errors.CodeIndexFailed, "index operation failed"))
		return
	}

	// 写入后使弧作用域缓存失效
	if h.cache != nil {
		arc := req.Arc
		if arc == "" {
			arc = "*"
		}
		if err := h.cache.InvalidateArc(ctx, arc); err != nil {
			logger.Warn(ctx, "cache invalidation failed", "arc", arc, "error", err)
		}
	}

	dto.Success(c, result)
}

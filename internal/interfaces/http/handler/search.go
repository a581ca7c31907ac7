package handler

import (
	"github.com/gin-gonic/gin"

	"echoes-index-api/internal/application/search"
	"echoes-index-api/internal/interfaces/http/dto"
	"echoes-index-api/pkg/errors"
)

// SearchHandler 检索处理器
type SearchHandler struct {
	engine *search.Engine
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Search 混合检索
// @Summary 混合检索
// @Description 语义检索章节内容，图增强路径失败时自动降级
// @Tags Search
// @Accept json
// @Produce json
// @Param body body dto.SearchRequest true "检索请求"
// @Success 200 {object} dto.Response[[]search.Result]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/search [post]
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	results, err := h.engine.Search(c.Request.Context(), search.Input{
		Query:         req.Query,
		TopK:          req.TopK,
		Characters:    req.Characters,
		AllCharacters: req.AllCharacters,
		Arc:           req.Arc,
		POV:           req.POV,
		UseGraphRAG:   req.UseGraphRAG,
		TimeoutMs:     req.TimeoutMs,
	})
	if err != nil {
		dto.AppError(c, errors.Wrap(err, errors.CodeSearchFailed, "search failed"))
		return
	}

	dto.Success(c, results)
}

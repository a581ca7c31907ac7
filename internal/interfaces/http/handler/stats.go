package handler

import (
	"github.com/gin-gonic/gin"

	"echoes-index-api/internal/application/stats"
	"echoes-index-api/internal/interfaces/http/dto"
	"echoes-index-api/pkg/errors"
)

// StatsHandler 统计处理器
type StatsHandler struct {
	service *stats.Service
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(service *stats.Service) *StatsHandler {
	return &StatsHandler{service: service}
}

// Stats 聚合统计
// @Summary 聚合统计
// @Description 按弧/集/POV 过滤的语料聚合统计
// @Tags Stats
// @Produce json
// @Param arc query string false "故事弧"
// @Param episode query int false "集号"
// @Param pov query string false "POV 角色"
// @Success 200 {object} dto.Response[stats.Summary]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	var query dto.StatsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), stats.Filter{
		Arc:     query.Arc,
		Episode: query.Episode,
		POV:     query.POV,
	})
	if err != nil {
		dto.AppError(c, errors.Wrap(err, errors.CodeDatabaseError, "stats query failed"))
		return
	}

	dto.Success(c, summary)
}

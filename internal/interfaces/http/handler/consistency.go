package handler

import (
	"github.com/gin-gonic/gin"

	"echoes-index-api/internal/application/consistency"
	"echoes-index-api/internal/interfaces/http/dto"
	"echoes-index-api/pkg/errors"
)

// ConsistencyHandler 一致性检查处理器
type ConsistencyHandler struct {
	runner *consistency.Runner
}

// NewConsistencyHandler 创建一致性检查处理器
func NewConsistencyHandler(runner *consistency.Runner) *ConsistencyHandler {
	return &ConsistencyHandler{runner: runner}
}

// Check 运行一致性检查
// @Summary 运行一致性检查
// @Description 对一个故事弧运行全部叙事一致性检查
// @Tags Consistency
// @Accept json
// @Produce json
// @Param body body dto.ConsistencyCheckRequest true "检查请求"
// @Success 200 {object} dto.Response[consistency.Report]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/consistency/check [post]
func (h *ConsistencyHandler) Check(c *gin.Context) {
	var req dto.ConsistencyCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	report, err := h.runner.Check(c.Request.Context(), req.Arc)
	if err != nil {
		dto.AppError(c, errors.Wrap(err, errors.CodeConsistencyFailed, "consistency check failed"))
		return
	}

	dto.Success(c, report)
}

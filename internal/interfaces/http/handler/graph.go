package handler

import (
	"github.com/gin-gonic/gin"

	"echoes-index-api/internal/application/graph"
	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/interfaces/http/dto"
	"echoes-index-api/pkg/errors"
)

// GraphHandler 实体关系图处理器
type GraphHandler struct {
	builder *graph.Builder
}

// NewGraphHandler 创建图处理器
func NewGraphHandler(builder *graph.Builder) *GraphHandler {
	return &GraphHandler{builder: builder}
}

// Graph 导出实体关系图
// @Summary 导出实体关系图
// @Description 构建弧作用域实体关系图并按请求格式编码
// @Tags Graph
// @Produce json
// @Param arc query string true "故事弧"
// @Param format query string false "mermaid | json | dot"
// @Success 200 {object} dto.Response[graph.D3Graph]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/graph [get]
func (h *GraphHandler) Graph(c *gin.Context) {
	var query dto.GraphQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}

	entityTypes := make([]entity.StoryEntityType, 0, len(query.EntityTypes))
	for _, t := range query.EntityTypes {
		et := entity.StoryEntityType(t)
		if !et.Valid() {
			dto.BadRequest(c, "invalid entity type: "+t)
			return
		}
		entityTypes = append(entityTypes, et)
	}
	relationTypes := make([]entity.RelationType, 0, len(query.RelationTypes))
	for _, t := range query.RelationTypes {
		rt := entity.RelationType(t)
		if !rt.Valid() {
			dto.BadRequest(c, "invalid relation type: "+t)
			return
		}
		relationTypes = append(relationTypes, rt)
	}

	g, err := h.builder.BuildGraph(c.Request.Context(), query.Arc)
	if err != nil {
		dto.AppError(c, errors.Wrap(err, errors.CodeGraphFailed, "graph build failed"))
		return
	}

	filtered := graph.FilterGraph(g, graph.FilterOptions{
		EntityTypes:   entityTypes,
		RelationTypes: relationTypes,
		Characters:    query.Characters,
	})

	switch query.Format {
	case "mermaid":
		c.String(200, graph.ExportMermaid(filtered))
	case "dot":
		c.String(200, graph.ExportDOT(filtered))
	case "json", "":
		dto.Success(c, graph.ExportD3(filtered))
	default:
		dto.BadRequest(c, "unknown format: "+query.Format)
	}
}

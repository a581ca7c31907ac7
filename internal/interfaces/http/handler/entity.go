package handler

import (
	"github.com/gin-gonic/gin"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
	"echoes-index-api/internal/interfaces/http/dto"
	"echoes-index-api/pkg/errors"
)

// EntityHandler 故事实体与关系查询处理器
type EntityHandler struct {
	entities  repository.EntityRepository
	relations repository.RelationRepository
}

// NewEntityHandler 创建实体查询处理器
func NewEntityHandler(entities repository.EntityRepository, relations repository.RelationRepository) *EntityHandler {
	return &EntityHandler{
		entities:  entities,
		relations: relations,
	}
}

// ListEntities 查询故事实体
// @Summary 查询故事实体
// @Tags Entity
// @Produce json
// @Param arc query string false "故事弧"
// @Param type query string false "实体类型"
// @Param name query string false "名称模糊匹配"
// @Success 200 {object} dto.Response[[]entity.StoryEntity]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/entities [get]
func (h *EntityHandler) ListEntities(c *gin.Context) {
	var query dto.EntityListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}

	filter := &repository.EntityFilter{Name: query.Name}
	if query.Type != "" {
		et := entity.StoryEntityType(query.Type)
		if !et.Valid() {
			dto.BadRequest(c, "invalid entity type: "+query.Type)
			return
		}
		filter.Type = et
	}

	result, err := h.entities.ListPaged(c.Request.Context(), query.Arc, filter,
		repository.NewPagination(query.Page, query.PageSize))
	if err != nil {
		dto.AppError(c, errors.Wrap(err, errors.CodeDatabaseError, "entity query failed"))
		return
	}

	dto.SuccessWithPage(c, result.Items, &dto.PageMeta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// ListRelations 查询实体关系
// @Summary 查询实体关系
// @Tags Entity
// @Produce json
// @Param arc query string false "故事弧"
// @Param entity query string false "匹配 source 或 target"
// @Param source query string false "源实体"
// @Param target query string false "目标实体"
// @Param type query string false "关系类型"
// @Success 200 {object} dto.Response[[]entity.Relation]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/relations [get]
func (h *EntityHandler) ListRelations(c *gin.Context) {
	var query dto.RelationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}

	filter := &repository.RelationFilter{
		Entity: query.Entity,
		Source: query.Source,
		Target: query.Target,
	}
	if query.Type != "" {
		rt := entity.RelationType(query.Type)
		if !rt.Valid() {
			dto.BadRequest(c, "invalid relation type: "+query.Type)
			return
		}
		filter.Type = rt
	}

	result, err := h.relations.ListPaged(c.Request.Context(), query.Arc, filter,
		repository.NewPagination(query.Page, query.PageSize))
	if err != nil {
		dto.AppError(c, errors.Wrap(err, errors.CodeDatabaseError, "relation query failed"))
		return
	}

	dto.SuccessWithPage(c, result.Items, &dto.PageMeta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"doc-audit-go/internal/model"
	"doc-audit-go/internal/service"
	"doc-audit-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// TemplateHandler 负责处理模板管理相关的 API 请求（仅管理员）。
type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler 创建一个新的 TemplateHandler 实例。
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// Create 处理创建模板的请求。
func (h *TemplateHandler) Create(c *gin.Context) {
	var input service.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Warnf("CreateTemplate: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：模板名和字段列表不能为空",
		})
		return
	}

	user := c.MustGet("user").(*model.User)
	template, err := h.templateService.Create(c.Request.Context(), input, user.ID)
	if err != nil {
		log.Warnf("CreateTemplate: Failed, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": template, "message": "success"})
}

// Update 处理更新模板的请求。
func (h *TemplateHandler) Update(c *gin.Context) {
	templateID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	var input service.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载",
		})
		return
	}

	template, err := h.templateService.Update(c.Request.Context(), templateID, input)
	if err != nil {
		log.Warnf("UpdateTemplate: Failed for id %d, error: %v", templateID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": template, "message": "success"})
}

// Delete 处理删除模板的请求。
func (h *TemplateHandler) Delete(c *gin.Context) {
	templateID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	if err := h.templateService.Delete(c.Request.Context(), templateID); err != nil {
		log.Warnf("DeleteTemplate: Failed for id %d, error: %v", templateID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "模板删除成功"})
}

// Get 处理获取单个模板的请求。
func (h *TemplateHandler) Get(c *gin.Context) {
	templateID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	template, err := h.templateService.Get(templateID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    http.StatusNotFound,
			"message": "模板不存在",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": template, "message": "success"})
}

// List 处理获取模板列表的请求。
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templateService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": templates, "message": "success"})
}

// DraftSchemaRequest 定义了模板草稿 API 的请求体结构。
type DraftSchemaRequest struct {
	SampleText string `json:"sampleText" binding:"required"`
}

// DraftSchema 处理根据样本文本生成模板草稿的请求。
func (h *TemplateHandler) DraftSchema(c *gin.Context) {
	var req DraftSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：sampleText 不能为空",
		})
		return
	}

	draft, err := h.templateService.DraftSchema(c.Request.Context(), req.SampleText)
	if err != nil {
		log.Warnf("DraftSchema: Failed, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": draft, "message": "success"})
}

// Reindex 处理全量重建模板签名索引的请求。
func (h *TemplateHandler) Reindex(c *gin.Context) {
	indexed, err := h.templateService.ReindexAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"data":    gin.H{"indexed": indexed},
		"message": "签名重建完成",
	})
}

// parseUintParam 解析路径参数中的数字 ID，失败时直接写出 400 响应。
func parseUintParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id64, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的路径参数 '" + name + "'",
		})
		return 0, err
	}
	return uint(id64), nil
}

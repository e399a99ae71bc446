// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"doc-audit-go/internal/model"
	"doc-audit-go/internal/service"
	"doc-audit-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理文档相关的 API 请求。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload 处理文档上传请求（multipart 表单，字段名 file）。
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "请求中缺少文件",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "无法读取上传文件",
		})
		return
	}
	defer file.Close()

	user := c.MustGet("user").(*model.User)
	contentType := fileHeader.Header.Get("Content-Type")

	doc, err := h.documentService.Upload(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size, contentType, user.ID)
	if err != nil {
		log.Errorf("Upload: Failed for user '%s', error: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": doc, "message": "文档已入队处理"})
}

// List 返回当前用户上传的全部文档。
func (h *DocumentHandler) List(c *gin.Context) {
	user := c.MustGet("user").(*model.User)
	docs, err := h.documentService.ListByUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": docs, "message": "success"})
}

// Get 返回文档详情（元数据 + 字段记录）。
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	detail, err := h.documentService.Get(docID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    http.StatusNotFound,
			"message": "文档不存在",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": detail, "message": "success"})
}

// ConfirmRequest 定义了模板确认 API 的请求体结构。
type ConfirmRequest struct {
	Accept     bool  `json:"accept"`
	TemplateID *uint `json:"templateId"`
}

// Confirm 处理建议模板的人工裁决请求。
func (h *DocumentHandler) Confirm(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载",
		})
		return
	}

	user := c.MustGet("user").(*model.User)
	doc, err := h.documentService.ConfirmSuggestion(c.Request.Context(), docID, req.Accept, req.TemplateID, user.ID)
	if err != nil {
		log.Warnf("Confirm: Failed for doc %d, error: %v", docID, err)
		c.JSON(http.StatusConflict, gin.H{
			"code":    http.StatusConflict,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": doc, "message": "success"})
}

// Reextract 处理重新抽取请求。
func (h *DocumentHandler) Reextract(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	user := c.MustGet("user").(*model.User)
	if err := h.documentService.Reextract(c.Request.Context(), docID, user.ID); err != nil {
		log.Warnf("Reextract: Failed for doc %d, error: %v", docID, err)
		c.JSON(http.StatusConflict, gin.H{
			"code":    http.StatusConflict,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "重新抽取已入队"})
}

// GenerateDownloadURL 生成原始文件的预签名下载链接。
func (h *DocumentHandler) GenerateDownloadURL(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	url, err := h.documentService.GetDownloadURL(docID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": gin.H{"url": url}, "message": "success"})
}

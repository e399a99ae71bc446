// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"doc-audit-go/internal/model"
	"doc-audit-go/internal/service"
	"doc-audit-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ReviewHandler 负责处理人工审核队列相关的 API 请求。
type ReviewHandler struct {
	reviewService service.ReviewService
}

// NewReviewHandler 创建一个新的 ReviewHandler 实例。
func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ListOpen 返回文档的待审核记录，按优先级与置信度排序。
func (h *ReviewHandler) ListOpen(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	items, err := h.reviewService.ListOpen(docID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": items, "message": "success"})
}

// OpenCount 返回文档的待审核数量。
func (h *ReviewHandler) OpenCount(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil {
		return
	}

	count, err := h.reviewService.OpenCount(c.Request.Context(), docID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": gin.H{"count": count}, "message": "success"})
}

// VerifyRequest 定义了人工核验 API 的请求体结构。
type VerifyRequest struct {
	Action         string  `json:"action" binding:"required"`
	CorrectedValue *string `json:"correctedValue"`
}

// Verify 处理一次人工核验裁决。
func (h *ReviewHandler) Verify(c *gin.Context) {
	recordID, err := parseUintParam(c, "recordId")
	if err != nil {
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：action 不能为空",
		})
		return
	}

	user := c.MustGet("user").(*model.User)
	if err := h.reviewService.Verify(c.Request.Context(), recordID, req.Action, req.CorrectedValue, user.ID); err != nil {
		log.Warnf("Verify: Failed for record %d, error: %v", recordID, err)
		c.JSON(http.StatusConflict, gin.H{
			"code":    http.StatusConflict,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "核验已记录"})
}

// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"doc-audit-go/internal/service"
	"doc-audit-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QueryHandler 负责处理结构化查询的 API 请求。
type QueryHandler struct {
	queryService service.QueryService
}

// NewQueryHandler 创建一个新的 QueryHandler 实例。
func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// QueryRequest 定义了结构化查询 API 的请求体结构。
// Query 是 ES 风格的布尔查询树，结构由调用方决定。
type QueryRequest struct {
	Query map[string]interface{} `json:"query" binding:"required"`
}

// Execute 执行一次结构化查询，返回命中结果与审核提示条。
func (h *QueryHandler) Execute(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：query 不能为空",
		})
		return
	}

	result, err := h.queryService.Execute(c.Request.Context(), req.Query)
	if err != nil {
		log.Warnf("Query: Failed, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": result, "message": "success"})
}

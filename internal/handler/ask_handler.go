// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"doc-audit-go/internal/service"
	"doc-audit-go/pkg/log"
	"doc-audit-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// AskHandler 负责处理 WebSocket 问答连接。
type AskHandler struct {
	askService    service.AskService
	userService   service.UserService
	jwtManager    *token.JWTManager
	stopToken     string
	stopTokenLock sync.Mutex
	// 每连接停止标志
	stopFlags sync.Map // key: session pointer string, value: bool
}

// NewAskHandler 创建一个新的 AskHandler。
func NewAskHandler(askService service.AskService, userService service.UserService, jwtManager *token.JWTManager) *AskHandler {
	return &AskHandler{
		askService:  askService,
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// GetWebsocketStopToken 返回一个可用于停止流的令牌。
func (h *AskHandler) GetWebsocketStopToken(c *gin.Context) {
	h.stopTokenLock.Lock()
	defer h.stopTokenLock.Unlock()
	// 在真实的多服务器设置中，这应该在 Redis 中生成和存储
	h.stopToken = "WSS_STOP_CMD_" + token.GenerateRandomString(16)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"cmdToken": h.stopToken}})
}

// askMessage 是 WebSocket 上的一条问答请求。
type askMessage struct {
	Question string                 `json:"question"`
	Query    map[string]interface{} `json:"query"`
}

// Handle 处理一个传入的 WebSocket 连接。
// token 通过路径参数传递，WebSocket 握手无法携带 Authorization 头。
func (h *AskHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	user, err := h.userService.GetProfile(claims.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", claims.Username)
	key := sessionKey(conn)
	defer h.stopFlags.Delete(key)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		// 停止指令: {"type":"stop","_internal_cmd_token":"..."}
		var ctrl map[string]interface{}
		if len(message) > 0 && message[0] == '{' {
			if err := json.Unmarshal(message, &ctrl); err == nil {
				if t, ok := ctrl["type"].(string); ok && t == "stop" {
					if tok, ok := ctrl["_internal_cmd_token"].(string); ok {
						h.stopTokenLock.Lock()
						valid := tok == h.stopToken
						h.stopTokenLock.Unlock()
						if valid {
							h.stopFlags.Store(key, true)
							resp := map[string]interface{}{
								"type":      "stop",
								"message":   "响应已停止",
								"timestamp": time.Now().UnixMilli(),
							}
							b, _ := json.Marshal(resp)
							_ = conn.WriteMessage(websocket.TextMessage, b)
							continue
						}
					}
				}
			}
		}

		var ask askMessage
		if err := json.Unmarshal(message, &ask); err != nil || ask.Question == "" || len(ask.Query) == 0 {
			errResp := map[string]interface{}{
				"type":    "error",
				"message": "无效的问答请求：question 和 query 不能为空",
			}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
			continue
		}

		// 开始新一轮回答前重置停止标志
		h.stopFlags.Store(key, false)
		shouldStop := func() bool {
			v, ok := h.stopFlags.Load(key)
			return ok && v == true
		}

		if err := h.askService.StreamAnswer(c.Request.Context(), ask.Question, ask.Query, user, conn, shouldStop); err != nil {
			log.Errorf("流式回答失败, user: %s, error: %v", user.Username, err)
			errResp := map[string]interface{}{
				"type":    "error",
				"message": "回答生成失败，请稍后重试",
			}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
	}
}

// sessionKey 用连接指针生成每连接的停止标志键。
func sessionKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}

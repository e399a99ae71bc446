// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"doc-audit-go/internal/model"
	"doc-audit-go/pkg/llm"
	"doc-audit-go/pkg/log"

	"github.com/gorilla/websocket"
)

// AskService 定义了基于已抽取字段的流式问答操作。
type AskService interface {
	// StreamAnswer 围绕一次结构化查询的命中结果回答用户问题。
	// 回答开始前会先推送一帧审核提示（JSON），告知调用方
	// 哪些相关字段还在待审核状态，之后才流式输出 LLM 回答。
	StreamAnswer(ctx context.Context, question string, query map[string]interface{}, user *model.User, ws *websocket.Conn, shouldStop func() bool) error
}

// askService 是 AskService 接口的实现。
type askService struct {
	queryService QueryService
	llmClient    llm.Client
}

// NewAskService 创建一个新的 AskService 实例。
func NewAskService(queryService QueryService, llmClient llm.Client) AskService {
	return &askService{
		queryService: queryService,
		llmClient:    llmClient,
	}
}

// StreamAnswer 协调查询、审核提示与 LLM 流式回答。
func (s *askService) StreamAnswer(ctx context.Context, question string, query map[string]interface{}, user *model.User, ws *websocket.Conn, shouldStop func() bool) error {
	// 1. 执行结构化查询获取上下文
	result, err := s.queryService.Execute(ctx, query)
	if err != nil {
		return fmt.Errorf("执行查询失败: %w", err)
	}

	// 2. 先推送审核提示帧。回答基于的字段还未核验时，
	// 调用方必须在看到回答之前就知道这一点
	banner := map[string]interface{}{
		"type":          "audit_notice",
		"touchedFields": result.TouchedFields,
		"counts":        result.Counts,
		"pending":       result.Counts.Total(),
		"timestamp":     time.Now().UnixMilli(),
	}
	bannerBytes, _ := json.Marshal(banner)
	if err := ws.WriteMessage(websocket.TextMessage, bannerBytes); err != nil {
		return fmt.Errorf("推送审核提示失败: %w", err)
	}

	// 3. 组装 system 消息与问题
	systemMsg := s.buildSystemMessage(result)
	messages := []llm.Message{
		{Role: "system", Content: systemMsg},
		{Role: "user", Content: question},
	}

	// 4. 流式输出 LLM 回答
	interceptor := &wsWriterInterceptor{conn: ws, shouldStop: shouldStop}
	if err := s.llmClient.StreamChatMessages(ctx, messages, nil, interceptor); err != nil {
		if errors.Is(err, errStreamStopped) {
			log.Infof("[AskService] 流式回答被用户停止, user: %s", user.Username)
			return nil
		}
		return err
	}

	// 5. 发送完成通知
	sendCompletion(ws)
	return nil
}

// buildSystemMessage 把查询命中的字段值组装为回答上下文。
func (s *askService) buildSystemMessage(result *QueryResult) string {
	var sb strings.Builder
	sb.WriteString("你是文档审计问答助手。请仅基于下面检索到的字段值回答问题，检索结果中没有的信息要明确说不知道。\n\n")
	sb.WriteString("检索到的字段值：\n")
	if len(result.Hits) == 0 {
		sb.WriteString("（本轮无检索结果）\n")
	}
	for i, hit := range result.Hits {
		verified := "未核验"
		if hit.Verified {
			verified = "已核验"
		}
		sb.WriteString(fmt.Sprintf("[%d] 文档 %s 字段 %s = %s（置信度 %.2f，%s）\n",
			i+1, hit.DocumentID, hit.FieldName, hit.Value, hit.Confidence, verified))
	}
	if result.Counts.Total() > 0 {
		sb.WriteString(fmt.Sprintf("\n注意：与本次问题相关的字段中还有 %d 条记录待人工审核（critical=%d, high=%d, medium=%d），回答时请提示用户这些值可能不准确。\n",
			result.Counts.Total(), result.Counts.Critical, result.Counts.High, result.Counts.Medium))
	}
	return sb.String()
}

// errStreamStopped 表示流式输出被用户主动停止。
var errStreamStopped = errors.New("stream stopped by user")

// wsWriterInterceptor 包装 websocket 连接，在每次写入前检查停止标志。
type wsWriterInterceptor struct {
	conn       *websocket.Conn
	shouldStop func() bool
}

// WriteMessage 实现 llm.MessageWriter。停止标志置位后返回哨兵错误中断流。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		return errStreamStopped
	}
	return w.conn.WriteMessage(messageType, data)
}

// sendCompletion 向客户端发送流结束通知帧。
func sendCompletion(ws *websocket.Conn) {
	resp := map[string]interface{}{
		"type":      "done",
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(resp)
	if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("发送完成通知失败: %v", err)
	}
}

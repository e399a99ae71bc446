package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"doc-audit-go/internal/model"
	"doc-audit-go/pkg/llm"
	"doc-audit-go/pkg/log"
)

// 传给分类器的文档文本上限，超出部分截断（模板目录与字段集不截断）。
const classifierTextLimit = 4000

// llmClassifier 用 LLM 实现 Classifier 兜底。
type llmClassifier struct {
	client llm.Client
}

// NewLLMClassifier 创建基于 LLM 的分类器兜底。
func NewLLMClassifier(client llm.Client) Classifier {
	return &llmClassifier{client: client}
}

type classifierReply struct {
	TemplateID       *uint   `json:"template_id"`
	Confidence       float64 `json:"confidence"`
	Rationale        string  `json:"rationale"`
	NeedsNewTemplate bool    `json:"needs_new_template"`
}

// Classify 把完整的模板目录与文档内容交给 LLM，由它给出模板或明确的"需要新模板"。
func (c *llmClassifier) Classify(ctx context.Context, docText string, docFields []string, catalog []model.Template) (*ClassifierResult, error) {
	var sb strings.Builder
	sb.WriteString("已知的文档模板目录：\n")
	for _, tpl := range catalog {
		sb.WriteString(fmt.Sprintf("- id=%d, name=%s, fields=[%s]\n", tpl.ID, tpl.Name, strings.Join(tpl.FieldNameList(), ", ")))
	}
	sb.WriteString("\n待分类文档的抽取字段：")
	sb.WriteString(strings.Join(docFields, ", "))
	sb.WriteString("\n\n待分类文档的文本内容（可能截断）：\n")
	sb.WriteString(truncateRunes(docText, classifierTextLimit))
	sb.WriteString("\n\n请判断该文档属于哪个模板。只输出 JSON，格式为：" +
		`{"template_id": <数字或null>, "confidence": <0到1>, "rationale": "<判断依据>", "needs_new_template": <true或false>}。` +
		"若没有任何模板适合该文档，template_id 置 null 且 needs_new_template 置 true，并在 rationale 中说明原因。")

	messages := []llm.Message{
		{Role: "system", Content: "你是文档结构分类助手，只输出严格的 JSON，不输出任何其他文字。"},
		{Role: "user", Content: sb.String()},
	}

	content, err := c.client.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("分类器调用失败: %w", err)
	}

	var reply classifierReply
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &reply); err != nil {
		log.Warnf("[Classifier] 无法解析分类器输出: %v, content: %s", err, content)
		return nil, fmt.Errorf("无法解析分类器输出: %w", err)
	}

	result := &ClassifierResult{
		TemplateID:       reply.TemplateID,
		Confidence:       clipUnit(reply.Confidence),
		Rationale:        reply.Rationale,
		NeedsNewTemplate: reply.NeedsNewTemplate || reply.TemplateID == nil,
	}
	if result.NeedsNewTemplate {
		result.TemplateID = nil
		if result.Rationale == "" {
			result.Rationale = "分类器未找到合适的模板"
		}
	}
	return result, nil
}

// stripCodeFence 去掉 LLM 偶尔包裹的 markdown 代码块标记。
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

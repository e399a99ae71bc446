// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"doc-audit-go/internal/config"
	"doc-audit-go/internal/model"
	"doc-audit-go/internal/repository"
	"doc-audit-go/pkg/es"
	"doc-audit-go/pkg/llm"
	"doc-audit-go/pkg/log"
)

// TemplateInput 是创建/更新模板的输入。
type TemplateInput struct {
	Name       string                     `json:"name" binding:"required"`
	Category   string                     `json:"category"`
	FieldNames []string                   `json:"fieldNames" binding:"required"`
	FieldRules map[string]model.FieldRule `json:"fieldRules"`
	SampleText string                     `json:"sampleText"`
}

// SchemaDraft 是 LLM 根据样本文本起草的模板结构建议，
// 仅作为管理员创建模板时的参考，不会被直接落库。
type SchemaDraft struct {
	SuggestedName string                     `json:"suggestedName"`
	Category      string                     `json:"category"`
	FieldNames    []string                   `json:"fieldNames"`
	FieldRules    map[string]model.FieldRule `json:"fieldRules"`
}

// TemplateService 接口定义了模板管理的业务操作。
// 每次写操作都会同步更新模板签名索引，保证相似度引擎
// 看到的签名与数据库中的模板目录最终一致。
type TemplateService interface {
	Create(ctx context.Context, input TemplateInput, createdBy uint) (*model.Template, error)
	Update(ctx context.Context, templateID uint, input TemplateInput) (*model.Template, error)
	Delete(ctx context.Context, templateID uint) error
	Get(templateID uint) (*model.Template, error)
	List() ([]model.Template, error)
	// DraftSchema 把样本文本交给 LLM，返回建议的字段集与校验规则草稿。
	DraftSchema(ctx context.Context, sampleText string) (*SchemaDraft, error)
	// ReindexAll 把全部模板签名重新写入索引（索引重建后的恢复入口）。
	ReindexAll(ctx context.Context) (int, error)
}

// templateService 是 TemplateService 接口的实现。
type templateService struct {
	templateRepo repository.TemplateRepository
	llmClient    llm.Client
}

// NewTemplateService 创建一个新的 TemplateService 实例。
func NewTemplateService(templateRepo repository.TemplateRepository, llmClient llm.Client) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		llmClient:    llmClient,
	}
}

// Create 创建模板并将其签名写入模板签名索引。
func (s *templateService) Create(ctx context.Context, input TemplateInput, createdBy uint) (*model.Template, error) {
	fieldNames := model.JoinFieldNames(input.FieldNames)
	if fieldNames == "" {
		return nil, errors.New("模板至少需要声明一个字段")
	}

	rulesJSON, err := marshalRules(input.FieldRules)
	if err != nil {
		return nil, err
	}

	template := &model.Template{
		Name:       input.Name,
		Category:   input.Category,
		FieldNames: fieldNames,
		FieldRules: rulesJSON,
		SampleText: input.SampleText,
		CreatedBy:  createdBy,
	}
	if err := s.templateRepo.Create(template); err != nil {
		return nil, err
	}

	if err := s.indexSignature(ctx, template); err != nil {
		// 数据库是模板目录的事实来源，索引失败时记录并继续，
		// 可以通过 ReindexAll 补偿
		log.Errorf("[TemplateService] 索引模板签名失败, templateID: %d, error: %v", template.ID, err)
	}

	log.Infof("[TemplateService] 模板创建成功, id: %d, name: %s", template.ID, template.Name)
	return template, nil
}

// Update 更新模板并覆盖其签名（同 ID 写入，后写胜出）。
func (s *templateService) Update(ctx context.Context, templateID uint, input TemplateInput) (*model.Template, error) {
	template, err := s.templateRepo.FindByID(templateID)
	if err != nil {
		return nil, err
	}

	fieldNames := model.JoinFieldNames(input.FieldNames)
	if fieldNames == "" {
		return nil, errors.New("模板至少需要声明一个字段")
	}
	rulesJSON, err := marshalRules(input.FieldRules)
	if err != nil {
		return nil, err
	}

	template.Name = input.Name
	template.Category = input.Category
	template.FieldNames = fieldNames
	template.FieldRules = rulesJSON
	template.SampleText = input.SampleText

	if err := s.templateRepo.Update(template); err != nil {
		return nil, err
	}
	if err := s.indexSignature(ctx, template); err != nil {
		log.Errorf("[TemplateService] 更新模板签名失败, templateID: %d, error: %v", template.ID, err)
	}
	return template, nil
}

// Delete 删除模板及其签名。已用该模板抽取过的文档不受影响，
// 它们保留的是抽取时刻的结果快照。
func (s *templateService) Delete(ctx context.Context, templateID uint) error {
	if err := s.templateRepo.Delete(templateID); err != nil {
		return err
	}
	if err := es.DeleteTemplateSignature(ctx, config.Conf.Elasticsearch.TemplateIndex, strconv.FormatUint(uint64(templateID), 10)); err != nil {
		log.Errorf("[TemplateService] 删除模板签名失败, templateID: %d, error: %v", templateID, err)
	}
	return nil
}

// Get 根据 ID 获取模板。
func (s *templateService) Get(templateID uint) (*model.Template, error) {
	return s.templateRepo.FindByID(templateID)
}

// List 返回全部模板。
func (s *templateService) List() ([]model.Template, error) {
	return s.templateRepo.FindAll()
}

// DraftSchema 让 LLM 根据样本文本起草模板结构。
func (s *templateService) DraftSchema(ctx context.Context, sampleText string) (*SchemaDraft, error) {
	if strings.TrimSpace(sampleText) == "" {
		return nil, errors.New("样本文本不能为空")
	}

	prompt := fmt.Sprintf(`请阅读以下文档样本，起草一个结构化抽取模板。只输出 JSON，格式为：
{"suggestedName": "<模板名>", "category": "<分类标签>", "fieldNames": ["<字段名>", ...], "fieldRules": {"<字段名>": {"kind": "scalar|array|array_of_objects|table", "type": "string|number|date|bool", "required": <bool>}}}
字段名使用小写下划线风格。

文档样本：
%s`, sampleText)

	messages := []llm.Message{
		{Role: "system", Content: "你是文档模板设计助手，只输出严格的 JSON，不输出任何其他文字。"},
		{Role: "user", Content: prompt},
	}
	content, err := s.llmClient.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("生成模板草稿失败: %w", err)
	}

	var draft SchemaDraft
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &draft); err != nil {
		log.Warnf("[TemplateService] 无法解析模板草稿输出: %v, content: %s", err, content)
		return nil, fmt.Errorf("无法解析模板草稿输出: %w", err)
	}
	return &draft, nil
}

// ReindexAll 全量重建模板签名索引。
func (s *templateService) ReindexAll(ctx context.Context) (int, error) {
	templates, err := s.templateRepo.FindAll()
	if err != nil {
		return 0, err
	}
	indexed := 0
	for i := range templates {
		if err := s.indexSignature(ctx, &templates[i]); err != nil {
			log.Errorf("[TemplateService] 重建签名失败, templateID: %d, error: %v", templates[i].ID, err)
			continue
		}
		indexed++
	}
	log.Infof("[TemplateService] 签名重建完成, total: %d, indexed: %d", len(templates), indexed)
	return indexed, nil
}

// indexSignature 把模板投影为签名文档并写入索引。
func (s *templateService) indexSignature(ctx context.Context, template *model.Template) error {
	signature := model.EsTemplateSignature{
		TemplateID:    strconv.FormatUint(uint64(template.ID), 10),
		Name:          template.Name,
		FieldNameText: template.FieldNameText(),
		SampleText:    template.SampleText,
		Category:      template.Category,
	}
	return es.IndexTemplateSignature(ctx, config.Conf.Elasticsearch.TemplateIndex, signature)
}

// marshalRules 序列化规则表（键规范化，空表存空串）。
func marshalRules(rules map[string]model.FieldRule) (string, error) {
	if len(rules) == 0 {
		return "", nil
	}
	normalized := make(map[string]model.FieldRule, len(rules))
	for name, rule := range rules {
		key := model.NormalizeFieldName(name)
		if key == "" {
			continue
		}
		normalized[key] = rule
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("序列化字段规则失败: %w", err)
	}
	return string(data), nil
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

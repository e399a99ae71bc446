// Package pipeline 实现文档处理管道：
// 下载 -> 文本提取 -> 模板匹配（或人工确认的模板）-> 定向抽取 -> 校验与优先级 -> 落库与索引。
// 管道由 Kafka 消费者驱动，失败的任务由消费者按次数重试。
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"doc-audit-go/internal/audit"
	"doc-audit-go/internal/config"
	"doc-audit-go/internal/matching"
	"doc-audit-go/internal/model"
	"doc-audit-go/internal/repository"
	"doc-audit-go/pkg/es"
	"doc-audit-go/pkg/log"
	"doc-audit-go/pkg/parser"
	"doc-audit-go/pkg/storage"
	"doc-audit-go/pkg/tasks"
	"doc-audit-go/pkg/tika"

	"github.com/minio/minio-go/v7"
)

// Processor 是文档处理管道的实现，满足 kafka.TaskProcessor 接口。
type Processor struct {
	documentRepo    repository.DocumentRepository
	templateRepo    repository.TemplateRepository
	recordRepo      repository.FieldRecordRepository
	tikaClient      *tika.Client
	parserClient    parser.Client
	matcher         *matching.Matcher
	validator       *audit.Validator
	auditThresholds audit.Thresholds
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	documentRepo repository.DocumentRepository,
	templateRepo repository.TemplateRepository,
	recordRepo repository.FieldRecordRepository,
	tikaClient *tika.Client,
	parserClient parser.Client,
	matcher *matching.Matcher,
	validator *audit.Validator,
	auditThresholds audit.Thresholds,
) *Processor {
	return &Processor{
		documentRepo:    documentRepo,
		templateRepo:    templateRepo,
		recordRepo:      recordRepo,
		tikaClient:      tikaClient,
		parserClient:    parserClient,
		matcher:         matcher,
		validator:       validator,
		auditThresholds: auditThresholds,
	}
}

// Process 处理一个文档任务。返回错误时由消费者决定是否重试，
// 同时把文档标记为 failed，重试成功后状态会被覆盖。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	err := p.process(ctx, task)
	if err != nil {
		if updateErr := p.documentRepo.UpdateStatus(task.DocumentID, model.DocStatusFailed); updateErr != nil {
			log.Errorf("[Pipeline] 标记文档失败状态出错, docID: %d, error: %v", task.DocumentID, updateErr)
		}
	}
	return err
}

func (p *Processor) process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	// 1. 从对象存储下载原始文件
	object, err := storage.MinioClient.GetObject(ctx, config.Conf.MinIO.BucketName, task.ObjectName, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("下载文档失败: %w", err)
	}
	defer object.Close()

	// 2. 用 Tika 提取纯文本并保存（重新抽取与问答都依赖它）
	text, err := p.tikaClient.ExtractText(object, task.FileName)
	if err != nil {
		return fmt.Errorf("文本提取失败: %w", err)
	}
	if err := p.documentRepo.UpdateExtractedText(task.DocumentID, text); err != nil {
		return fmt.Errorf("保存提取文本失败: %w", err)
	}

	// 3. 确定模板：人工确认的任务直接使用指定模板，否则执行匹配决策链
	if task.TemplateID != nil {
		template, err := p.templateRepo.FindByID(*task.TemplateID)
		if err != nil {
			return fmt.Errorf("读取确认模板失败: %w", err)
		}
		if err := p.extract(ctx, task.DocumentID, text, template); err != nil {
			return err
		}
		// 人工确认的模板置信度记为 1.0
		return p.documentRepo.UpdateMatchResult(task.DocumentID, model.DocStatusMatched, task.TemplateID, 1.0, "模板由人工确认")
	}

	// 自由抽取获得文档的字段概貌，作为匹配的字段探针
	candidates, err := p.parserClient.ExtractFields(ctx, text, nil)
	if err != nil {
		return fmt.Errorf("自由抽取失败: %w", err)
	}
	docFields := make([]string, 0, len(candidates))
	for _, c := range candidates {
		docFields = append(docFields, c.Name)
	}

	decision, err := p.matcher.Match(ctx, text, docFields)
	if err != nil {
		return fmt.Errorf("模板匹配失败: %w", err)
	}

	switch decision.Outcome {
	case matching.OutcomeAutoMatched:
		template, err := p.templateRepo.FindByID(*decision.TemplateID)
		if err != nil {
			return fmt.Errorf("读取匹配模板失败: %w", err)
		}
		if err := p.extract(ctx, task.DocumentID, text, template); err != nil {
			return err
		}
		return p.documentRepo.UpdateMatchResult(task.DocumentID, model.DocStatusMatched, decision.TemplateID, decision.Confidence, decision.Rationale)

	case matching.OutcomeSuggested:
		// 建议停在人工确认之前，不做抽取
		log.Infof("[Pipeline] 文档获得建议模板，等待人工确认, docID: %d, templateID: %d", task.DocumentID, *decision.TemplateID)
		return p.documentRepo.UpdateMatchResult(task.DocumentID, model.DocStatusSuggested, decision.TemplateID, decision.Confidence, decision.Rationale)

	default: // template_needed
		log.Infof("[Pipeline] 文档需要新模板, docID: %d, rationale: %s", task.DocumentID, decision.Rationale)
		return p.documentRepo.UpdateMatchResult(task.DocumentID, model.DocStatusTemplateNeeded, nil, decision.Confidence, decision.Rationale)
	}
}

// extract 按模板执行定向抽取、规则校验、优先级融合与落库。
func (p *Processor) extract(ctx context.Context, docID uint, text string, template *model.Template) error {
	fieldNames := template.FieldNameList()
	candidates, err := p.parserClient.ExtractFields(ctx, text, fieldNames)
	if err != nil {
		return fmt.Errorf("定向抽取失败: %w", err)
	}

	rules, err := template.RuleMap()
	if err != nil {
		return fmt.Errorf("解析模板规则失败: %w", err)
	}

	// 校验器的输入视图
	extracted := make([]audit.ExtractedField, 0, len(candidates))
	for _, c := range candidates {
		extracted = append(extracted, audit.ExtractedField{
			Name:       c.Name,
			Value:      c.Value,
			Kind:       c.Kind,
			Confidence: c.Confidence,
		})
	}
	results := p.validator.Validate(extracted, rules)

	records := make([]*model.FieldRecord, 0, len(candidates))
	for _, c := range candidates {
		name := model.NormalizeFieldName(c.Name)
		result := results[name]

		rawJSON, err := json.Marshal(c.Value)
		if err != nil {
			return fmt.Errorf("序列化字段值失败, field: %s: %w", name, err)
		}
		errorsJSON := ""
		if len(result.Messages) > 0 {
			b, err := json.Marshal(result.Messages)
			if err != nil {
				return fmt.Errorf("序列化校验信息失败, field: %s: %w", name, err)
			}
			errorsJSON = string(b)
		}

		records = append(records, &model.FieldRecord{
			DocumentID: docID,
			FieldName:  name,
			RawValue:   string(rawJSON),
			Kind:       c.Kind,
			Confidence: c.Confidence,
			Status:     result.Status,
			Errors:     errorsJSON,
			Priority:   audit.Priority(c.Confidence, result.Status, p.auditThresholds),
		})
	}

	// 落库是整体替换：重新抽取不会留下上一轮的旧记录
	if err := p.recordRepo.ReplaceForDocument(docID, records); err != nil {
		return fmt.Errorf("写入字段记录失败: %w", err)
	}

	// 同步字段投影索引：先清理旧投影再写入新投影。
	// 索引失败不阻断管道，数据库记录才是事实来源
	p.reindexFieldRecords(ctx, docID, records)

	log.Infof("[Pipeline] 抽取完成, docID: %d, template: %s, fields: %d", docID, template.Name, len(records))
	return nil
}

// reindexFieldRecords 重建文档的字段投影（尽力而为）。
func (p *Processor) reindexFieldRecords(ctx context.Context, docID uint, records []*model.FieldRecord) {
	indexName := config.Conf.Elasticsearch.FieldIndex
	if err := es.DeleteFieldRecordsByDocument(ctx, indexName, docID); err != nil {
		log.Errorf("[Pipeline] 清理旧字段投影失败, docID: %d, error: %v", docID, err)
	}
	for _, rec := range records {
		projection := model.EsFieldRecord{
			RecordID:   strconv.FormatUint(uint64(rec.ID), 10),
			DocumentID: strconv.FormatUint(uint64(docID), 10),
			FieldName:  rec.FieldName,
			Value:      rec.RawValue,
			Confidence: rec.Confidence,
			Priority:   rec.Priority,
			Verified:   false,
		}
		if err := es.IndexFieldRecord(ctx, indexName, projection); err != nil {
			log.Errorf("[Pipeline] 索引字段投影失败, recordID: %d, error: %v", rec.ID, err)
		}
	}
}

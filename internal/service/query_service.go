// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"strconv"

	"doc-audit-go/internal/config"
	"doc-audit-go/internal/lineage"
	"doc-audit-go/internal/model"
	"doc-audit-go/internal/repository"
	"doc-audit-go/pkg/es"
	"doc-audit-go/pkg/log"
)

// 单次查询返回的字段投影上限。
const queryResultLimit = 200

// QueryResult 是一次结构化查询的完整返回：
// 命中的字段投影 + 与查询相关的待审核提示条。
type QueryResult struct {
	// Hits 是查询命中的字段投影文档。
	Hits []model.EsFieldRecord `json:"hits"`
	// TouchedFields 是查询血缘触达的字段名（有序）。
	TouchedFields []string `json:"touchedFields"`
	// PendingReview 是命中文档中字段名与查询血缘相交的待审核记录。
	PendingReview []ReviewItem `json:"pendingReview"`
	// Counts 按优先级汇总 PendingReview（查询结果的提示条）。
	Counts lineage.Counts `json:"counts"`
	// Warnings 是血缘遍历中跳过的未知子句说明。
	Warnings []string `json:"warnings,omitempty"`
}

// QueryService 接口定义了结构化查询操作。
// 查询结果附带审核相关性提示：调用方看到的每个命中值，
// 如果它所依赖的字段还有未核验的低置信度记录，提示条会标出来。
type QueryService interface {
	Execute(ctx context.Context, query map[string]interface{}) (*QueryResult, error)
}

// queryService 是 QueryService 接口的实现。
type queryService struct {
	recordRepo repository.FieldRecordRepository
	extractor  *lineage.Extractor
}

// NewQueryService 创建一个新的 QueryService 实例。
func NewQueryService(recordRepo repository.FieldRecordRepository) QueryService {
	return &queryService{
		recordRepo: recordRepo,
		extractor:  lineage.NewExtractor(),
	}
}

// Execute 执行调用方构造的布尔查询并组装审核提示条。
func (s *queryService) Execute(ctx context.Context, query map[string]interface{}) (*QueryResult, error) {
	if len(query) == 0 {
		return nil, errors.New("查询体不能为空")
	}

	// 1. 先提取字段血缘。提取是纯遍历不依赖查询执行，
	// 即使查询本身执行失败，血缘告警也有诊断价值
	lin := s.extractor.Extract(query)
	for _, w := range lin.Warnings {
		log.Warnf("[QueryService] 血缘提取告警: %s", w)
	}

	// 2. 执行查询
	hits, err := es.SearchFieldRecords(ctx, config.Conf.Elasticsearch.FieldIndex, query, queryResultLimit)
	if err != nil {
		return nil, err
	}

	// 3. 收集命中的文档 ID
	docIDs := collectDocumentIDs(hits)

	// 4. 取这些文档的待审核记录，与血缘做集合交
	open, err := s.recordRepo.FindOpenByDocuments(docIDs)
	if err != nil {
		return nil, err
	}
	relevant := lineage.Relevant(open, lin)

	items := make([]ReviewItem, 0, len(relevant))
	for _, rec := range relevant {
		items = append(items, toReviewItem(rec))
	}

	return &QueryResult{
		Hits:          hits,
		TouchedFields: lin.FieldSet(),
		PendingReview: items,
		Counts:        lineage.Summarize(relevant),
		Warnings:      lin.Warnings,
	}, nil
}

// collectDocumentIDs 从命中投影中去重收集文档 ID，无法解析的跳过。
func collectDocumentIDs(hits []model.EsFieldRecord) []uint {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0, len(hits))
	for _, hit := range hits {
		id64, err := strconv.ParseUint(hit.DocumentID, 10, 64)
		if err != nil {
			log.Warnf("[QueryService] 无法解析命中的文档 ID: %s", hit.DocumentID)
			continue
		}
		id := uint(id64)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

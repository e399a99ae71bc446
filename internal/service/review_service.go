// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"doc-audit-go/internal/config"
	"doc-audit-go/internal/model"
	"doc-audit-go/internal/repository"
	"doc-audit-go/pkg/database"
	"doc-audit-go/pkg/es"
	"doc-audit-go/pkg/log"
)

// 人工核验动作。
const (
	VerifyActionCorrect   = "correct"   // 抽取值正确，原样确认
	VerifyActionIncorrect = "incorrect" // 抽取值错误，提交修正值
	VerifyActionNotFound  = "not_found" // 文档中不存在该字段
)

// ReviewItem 是审核队列中单条记录的展示视图。
type ReviewItem struct {
	RecordID      uint     `json:"recordId"`
	DocumentID    uint     `json:"documentId"`
	FieldName     string   `json:"fieldName"`
	RawValue      string   `json:"rawValue"`
	Kind          string   `json:"kind"`
	Confidence    float64  `json:"confidence"`
	Status        string   `json:"status"`
	Errors        []string `json:"errors"`
	Priority      int      `json:"priority"`
	PriorityLabel string   `json:"priorityLabel"`
}

// ReviewService 接口定义了人工审核队列的业务操作。
// 队列按优先级升序、置信度升序排列：最紧急且最不确定的排前面。
type ReviewService interface {
	// ListOpen 返回文档的待审核记录（未核验且优先级 0-2）。
	ListOpen(docID uint) ([]ReviewItem, error)
	// Verify 记录一次人工核验裁决。数据库更新是原子的，
	// 字段投影索引的同步是尽力而为的，失败只记日志。
	Verify(ctx context.Context, recordID uint, action string, correctedValue *string, userID uint) error
	// OpenCount 返回文档的待审核数量（带 Redis 缓存）。
	OpenCount(ctx context.Context, docID uint) (int, error)
}

// reviewService 是 ReviewService 接口的实现。
type reviewService struct {
	recordRepo repository.FieldRecordRepository
}

// NewReviewService 创建一个新的 ReviewService 实例。
func NewReviewService(recordRepo repository.FieldRecordRepository) ReviewService {
	return &reviewService{recordRepo: recordRepo}
}

// ListOpen 实现审核队列读取，顺序由仓储层保证。
func (s *reviewService) ListOpen(docID uint) ([]ReviewItem, error) {
	records, err := s.recordRepo.FindOpenByDocument(docID)
	if err != nil {
		return nil, err
	}
	items := make([]ReviewItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toReviewItem(rec))
	}
	return items, nil
}

// Verify 实现人工核验裁决。
func (s *reviewService) Verify(ctx context.Context, recordID uint, action string, correctedValue *string, userID uint) error {
	record, err := s.recordRepo.FindByID(recordID)
	if err != nil {
		return err
	}
	if record.Verified {
		return errors.New("该记录已核验，不允许重复核验")
	}

	var verifiedValue *string
	switch action {
	case VerifyActionCorrect:
		// 原值确认：核验值取原始抽取值
		raw := record.RawValue
		verifiedValue = &raw
	case VerifyActionIncorrect:
		if correctedValue == nil {
			return errors.New("裁决为 incorrect 时必须提交修正值")
		}
		verifiedValue = correctedValue
	case VerifyActionNotFound:
		// 字段在文档中不存在，核验值为空
		verifiedValue = nil
	default:
		return fmt.Errorf("未知的核验动作 '%s'", action)
	}

	// 数据库是核验状态的事实来源，这一步必须成功
	if err := s.recordRepo.Verify(recordID, verifiedValue, userID); err != nil {
		return err
	}

	// 尽力而为地同步字段投影索引，失败不回滚数据库
	esValue := ""
	if verifiedValue != nil {
		esValue = *verifiedValue
	}
	if err := es.UpdateFieldRecordVerification(ctx, config.Conf.Elasticsearch.FieldIndex,
		strconv.FormatUint(uint64(recordID), 10), esValue); err != nil {
		log.Errorf("[ReviewService] 同步核验结果到索引失败, recordID: %d, error: %v", recordID, err)
	}

	// 核验改变了队列长度，失效计数缓存
	s.invalidateOpenCount(ctx, record.DocumentID)

	log.Infof("[ReviewService] 核验完成, recordID: %d, action: %s, by: %d", recordID, action, userID)
	return nil
}

// OpenCount 返回待审核数量，优先读 Redis 缓存。
func (s *reviewService) OpenCount(ctx context.Context, docID uint) (int, error) {
	key := openCountKey(docID)
	cached, err := database.RDB.Get(ctx, key).Int()
	if err == nil {
		return cached, nil
	}

	records, err := s.recordRepo.FindOpenByDocument(docID)
	if err != nil {
		return 0, err
	}
	count := len(records)
	if err := database.RDB.Set(ctx, key, count, 0).Err(); err != nil {
		log.Warnf("[ReviewService] 写入计数缓存失败, docID: %d, error: %v", docID, err)
	}
	return count, nil
}

func (s *reviewService) invalidateOpenCount(ctx context.Context, docID uint) {
	if err := database.RDB.Del(ctx, openCountKey(docID)).Err(); err != nil {
		log.Warnf("[ReviewService] 失效计数缓存失败, docID: %d, error: %v", docID, err)
	}
}

func openCountKey(docID uint) string {
	return fmt.Sprintf("review:open:%d", docID)
}

func toReviewItem(rec model.FieldRecord) ReviewItem {
	return ReviewItem{
		RecordID:      rec.ID,
		DocumentID:    rec.DocumentID,
		FieldName:     rec.FieldName,
		RawValue:      rec.RawValue,
		Kind:          rec.Kind,
		Confidence:    rec.Confidence,
		Status:        rec.Status,
		Errors:        rec.ErrorList(),
		Priority:      rec.Priority,
		PriorityLabel: model.PriorityLabel(rec.Priority),
	}
}

// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"doc-audit-go/internal/config"
	"doc-audit-go/internal/model"
	"doc-audit-go/internal/repository"
	"doc-audit-go/pkg/kafka"
	"doc-audit-go/pkg/log"
	"doc-audit-go/pkg/storage"
	"doc-audit-go/pkg/tasks"
	"doc-audit-go/pkg/token"
)

// DocumentDetail 是文档详情的聚合视图：元数据 + 字段记录。
type DocumentDetail struct {
	Document *model.Document     `json:"document"`
	Fields   []model.FieldRecord `json:"fields"`
}

// DocumentService 接口定义了文档生命周期的业务操作：
// 上传入队、建议确认、重新抽取与查询。
type DocumentService interface {
	// Upload 把文件写入对象存储、落库元数据并投递处理任务。
	// 管道异步消费任务，接口立即返回 processing 状态的文档。
	Upload(ctx context.Context, fileName string, reader io.Reader, size int64, contentType string, userID uint) (*model.Document, error)
	// ConfirmSuggestion 处理 suggested 状态的人工裁决。
	// accept 为 true 时以指定模板触发定向抽取，false 时文档转入 template_needed。
	ConfirmSuggestion(ctx context.Context, docID uint, accept bool, templateID *uint, userID uint) (*model.Document, error)
	// Reextract 以文档当前模板重新投递抽取任务（模板修订后的补数入口）。
	Reextract(ctx context.Context, docID uint, userID uint) error
	Get(docID uint) (*DocumentDetail, error)
	ListByUser(userID uint) ([]model.Document, error)
	// GetDownloadURL 生成原始文件的预签名下载链接。
	GetDownloadURL(docID uint) (string, error)
}

// documentService 是 DocumentService 接口的实现。
type documentService struct {
	documentRepo repository.DocumentRepository
	templateRepo repository.TemplateRepository
	recordRepo   repository.FieldRecordRepository
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(documentRepo repository.DocumentRepository, templateRepo repository.TemplateRepository, recordRepo repository.FieldRecordRepository) DocumentService {
	return &documentService{
		documentRepo: documentRepo,
		templateRepo: templateRepo,
		recordRepo:   recordRepo,
	}
}

// Upload 实现文档上传：MinIO 对象 + 数据库记录 + Kafka 任务。
func (s *documentService) Upload(ctx context.Context, fileName string, reader io.Reader, size int64, contentType string, userID uint) (*model.Document, error) {
	// 对象名加随机前缀，避免同名文件互相覆盖
	objectName := fmt.Sprintf("documents/%s-%s%s",
		token.GenerateRandomString(8),
		time.Now().Format("20060102150405"),
		filepath.Ext(fileName),
	)

	if err := storage.PutObject(ctx, config.Conf.MinIO.BucketName, objectName, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("上传文件到对象存储失败: %w", err)
	}

	doc := &model.Document{
		FileName:   fileName,
		ObjectName: objectName,
		Status:     model.DocStatusProcessing,
		UploadedBy: userID,
	}
	if err := s.documentRepo.Create(doc); err != nil {
		return nil, err
	}

	task := tasks.DocumentProcessingTask{
		DocumentID: doc.ID,
		ObjectName: objectName,
		FileName:   fileName,
		UserID:     userID,
	}
	if err := kafka.ProduceDocumentTask(task); err != nil {
		// 任务投递失败时标记文档失败，调用方可以重新上传
		log.Errorf("[DocumentService] 投递处理任务失败, docID: %d, error: %v", doc.ID, err)
		_ = s.documentRepo.UpdateStatus(doc.ID, model.DocStatusFailed)
		return nil, fmt.Errorf("投递处理任务失败: %w", err)
	}

	log.Infof("[DocumentService] 文档上传成功并已入队, docID: %d, object: %s", doc.ID, objectName)
	return doc, nil
}

// ConfirmSuggestion 实现建议模板的人工裁决。
func (s *documentService) ConfirmSuggestion(ctx context.Context, docID uint, accept bool, templateID *uint, userID uint) (*model.Document, error) {
	doc, err := s.documentRepo.FindByID(docID)
	if err != nil {
		return nil, err
	}
	// suggested 和 template_needed 都允许人工指定模板：
	// 前者是确认建议，后者是直接人工分类
	if doc.Status != model.DocStatusSuggested && doc.Status != model.DocStatusTemplateNeeded {
		return nil, fmt.Errorf("文档当前状态 '%s' 不允许确认模板", doc.Status)
	}

	if !accept {
		if err := s.documentRepo.UpdateMatchResult(docID, model.DocStatusTemplateNeeded, nil, doc.MatchConfidence,
			"建议模板被人工拒绝，需要创建或指定新模板"); err != nil {
			return nil, err
		}
		return s.documentRepo.FindByID(docID)
	}

	// 接受时优先使用显式指定的模板，否则回退到建议模板
	confirmedID := doc.TemplateID
	if templateID != nil {
		confirmedID = templateID
	}
	if confirmedID == nil {
		return nil, errors.New("没有可确认的模板：建议为空且未指定模板")
	}
	if _, err := s.templateRepo.FindByID(*confirmedID); err != nil {
		return nil, fmt.Errorf("指定的模板不存在: %w", err)
	}

	if err := s.documentRepo.UpdateStatus(docID, model.DocStatusProcessing); err != nil {
		return nil, err
	}

	task := tasks.DocumentProcessingTask{
		DocumentID: doc.ID,
		ObjectName: doc.ObjectName,
		FileName:   doc.FileName,
		UserID:     userID,
		TemplateID: confirmedID,
	}
	if err := kafka.ProduceDocumentTask(task); err != nil {
		log.Errorf("[DocumentService] 投递确认抽取任务失败, docID: %d, error: %v", docID, err)
		_ = s.documentRepo.UpdateStatus(docID, model.DocStatusFailed)
		return nil, fmt.Errorf("投递抽取任务失败: %w", err)
	}

	log.Infof("[DocumentService] 模板确认成功并已入队抽取, docID: %d, templateID: %d", docID, *confirmedID)
	return s.documentRepo.FindByID(docID)
}

// Reextract 以当前模板重新投递抽取任务。
func (s *documentService) Reextract(ctx context.Context, docID uint, userID uint) error {
	doc, err := s.documentRepo.FindByID(docID)
	if err != nil {
		return err
	}
	if doc.TemplateID == nil {
		return errors.New("文档尚未关联模板，无法重新抽取")
	}

	if err := s.documentRepo.UpdateStatus(docID, model.DocStatusProcessing); err != nil {
		return err
	}
	task := tasks.DocumentProcessingTask{
		DocumentID: doc.ID,
		ObjectName: doc.ObjectName,
		FileName:   doc.FileName,
		UserID:     userID,
		TemplateID: doc.TemplateID,
	}
	if err := kafka.ProduceDocumentTask(task); err != nil {
		_ = s.documentRepo.UpdateStatus(docID, model.DocStatusFailed)
		return fmt.Errorf("投递重新抽取任务失败: %w", err)
	}
	log.Infof("[DocumentService] 重新抽取已入队, docID: %d, templateID: %d", docID, *doc.TemplateID)
	return nil
}

// Get 返回文档详情（元数据 + 全部字段记录）。
func (s *documentService) Get(docID uint) (*DocumentDetail, error) {
	doc, err := s.documentRepo.FindByID(docID)
	if err != nil {
		return nil, err
	}
	// 这里取全部记录而不是只取待审核的，详情页需要完整视图
	fields, err := s.recordRepo.FindByDocument(docID)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Document: doc, Fields: fields}, nil
}

// ListByUser 返回用户上传的全部文档。
func (s *documentService) ListByUser(userID uint) ([]model.Document, error) {
	return s.documentRepo.FindByUserID(userID)
}

// GetDownloadURL 生成原始文件的预签名下载链接（1 小时有效）。
func (s *documentService) GetDownloadURL(docID uint) (string, error) {
	doc, err := s.documentRepo.FindByID(docID)
	if err != nil {
		return "", err
	}
	return storage.GetPresignedURL(config.Conf.MinIO.BucketName, doc.ObjectName, time.Hour)
}

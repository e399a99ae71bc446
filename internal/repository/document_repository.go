package repository

import (
	"doc-audit-go/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 接口定义了文档元数据的持久化操作。
type DocumentRepository interface {
	Create(doc *model.Document) error
	Update(doc *model.Document) error
	FindByID(docID uint) (*model.Document, error)
	FindByUserID(userID uint) ([]model.Document, error)
	UpdateMatchResult(docID uint, status string, templateID *uint, confidence float64, rationale string) error
	UpdateExtractedText(docID uint, text string) error
	UpdateStatus(docID uint, status string) error
}

// documentRepository 是 DocumentRepository 接口的 GORM 实现。
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 在数据库中创建一个新的文档记录。
func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// Update 更新数据库中一个已存在的文档记录。
func (r *documentRepository) Update(doc *model.Document) error {
	return r.db.Save(doc).Error
}

// FindByID 根据文档 ID 查找一个文档。
func (r *documentRepository) FindByID(docID uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.First(&doc, docID).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByUserID 查找指定用户上传的所有文档。
func (r *documentRepository) FindByUserID(userID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("uploaded_by = ?", userID).Order("created_at desc").Find(&docs).Error
	return docs, err
}

// UpdateMatchResult 写入一次匹配决策的全部结果字段。
func (r *documentRepository) UpdateMatchResult(docID uint, status string, templateID *uint, confidence float64, rationale string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", docID).Updates(map[string]interface{}{
		"status":           status,
		"template_id":      templateID,
		"match_confidence": confidence,
		"match_rationale":  rationale,
	}).Error
}

// UpdateExtractedText 保存 Tika 提取的文本内容。
func (r *documentRepository) UpdateExtractedText(docID uint, text string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", docID).Update("extracted_text", text).Error
}

// UpdateStatus 更新文档状态。
func (r *documentRepository) UpdateStatus(docID uint, status string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", docID).Update("status", status).Error
}

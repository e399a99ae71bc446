package repository

import (
	"doc-audit-go/internal/model"
	"time"

	"gorm.io/gorm"
)

// FieldRecordRepository 接口定义了抽取字段记录的持久化操作。
type FieldRecordRepository interface {
	// ReplaceForDocument 在一个事务内删除文档既有记录并写入新记录。
	// 重新抽取是整体替换，不存在新旧记录混杂的中间状态。
	ReplaceForDocument(docID uint, records []*model.FieldRecord) error
	FindByID(recordID uint) (*model.FieldRecord, error)
	// FindByDocument 返回文档的全部字段记录（含已核验与低优先级），供详情视图使用。
	FindByDocument(docID uint) ([]model.FieldRecord, error)
	// FindOpenByDocument 返回文档的未核验且优先级 <= 2 的记录，
	// 按优先级升序、置信度升序排列（最紧急且最不确定的排前面）。
	FindOpenByDocument(docID uint) ([]model.FieldRecord, error)
	FindOpenByDocuments(docIDs []uint) ([]model.FieldRecord, error)
	// Verify 以单条 UPDATE 原子地写入核验标志、核验值与核验人。
	// 同一字段的并发核验由数据库行锁串行化，后写胜出，不会出现半写状态。
	Verify(recordID uint, verifiedValue *string, verifiedBy uint) error
}

// fieldRecordRepository 是 FieldRecordRepository 接口的 GORM 实现。
type fieldRecordRepository struct {
	db *gorm.DB
}

// NewFieldRecordRepository 创建一个新的 FieldRecordRepository 实例。
func NewFieldRecordRepository(db *gorm.DB) FieldRecordRepository {
	return &fieldRecordRepository{db: db}
}

// ReplaceForDocument 用新一轮抽取结果整体替换文档的字段记录。
func (r *fieldRecordRepository) ReplaceForDocument(docID uint, records []*model.FieldRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&model.FieldRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 100).Error
	})
}

// FindByID 根据记录 ID 查找一条字段记录。
func (r *fieldRecordRepository) FindByID(recordID uint) (*model.FieldRecord, error) {
	var record model.FieldRecord
	err := r.db.First(&record, recordID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByDocument 返回文档的全部字段记录。
func (r *fieldRecordRepository) FindByDocument(docID uint) ([]model.FieldRecord, error) {
	var records []model.FieldRecord
	err := r.db.Where("document_id = ?", docID).
		Order("priority asc, confidence asc").
		Find(&records).Error
	return records, err
}

// FindOpenByDocument 返回单个文档的待审核记录。
func (r *fieldRecordRepository) FindOpenByDocument(docID uint) ([]model.FieldRecord, error) {
	var records []model.FieldRecord
	err := r.db.Where("document_id = ? AND verified = ? AND priority <= ?", docID, false, 2).
		Order("priority asc, confidence asc").
		Find(&records).Error
	return records, err
}

// FindOpenByDocuments 批量返回多个文档的待审核记录。
func (r *fieldRecordRepository) FindOpenByDocuments(docIDs []uint) ([]model.FieldRecord, error) {
	var records []model.FieldRecord
	if len(docIDs) == 0 {
		return records, nil
	}
	err := r.db.Where("document_id IN ? AND verified = ? AND priority <= ?", docIDs, false, 2).
		Order("priority asc, confidence asc").
		Find(&records).Error
	return records, err
}

// Verify 原子地写入核验结果（值 + 标志 + 核验人一起更新）。
func (r *fieldRecordRepository) Verify(recordID uint, verifiedValue *string, verifiedBy uint) error {
	now := time.Now()
	return r.db.Model(&model.FieldRecord{}).Where("id = ?", recordID).Updates(map[string]interface{}{
		"verified":       true,
		"verified_value": verifiedValue,
		"verified_by":    verifiedBy,
		"verified_at":    now,
	}).Error
}

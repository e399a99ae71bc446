// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"doc-audit-go/internal/model"

	"gorm.io/gorm"
)

// TemplateRepository 接口定义了模板签名的持久化操作。
// 匹配过程以快照读语义使用它：读到的签名集合可能略微滞后于
// 并发的模板编辑（后写胜出），这是可以接受的，模板编辑很少发生，
// 并且随时可以对文档重新发起匹配。
type TemplateRepository interface {
	Create(template *model.Template) error
	Update(template *model.Template) error
	Delete(templateID uint) error
	FindByID(templateID uint) (*model.Template, error)
	FindAll() ([]model.Template, error)
}

// templateRepository 是 TemplateRepository 接口的 GORM 实现。
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建一个新的 TemplateRepository 实例。
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// Create 在数据库中创建一个新的模板记录。
func (r *templateRepository) Create(template *model.Template) error {
	return r.db.Create(template).Error
}

// Update 更新数据库中一个已存在的模板记录。
func (r *templateRepository) Update(template *model.Template) error {
	return r.db.Save(template).Error
}

// Delete 根据模板 ID 删除模板记录。
func (r *templateRepository) Delete(templateID uint) error {
	return r.db.Delete(&model.Template{}, templateID).Error
}

// FindByID 根据模板 ID 查找一个模板。
func (r *templateRepository) FindByID(templateID uint) (*model.Template, error) {
	var template model.Template
	err := r.db.First(&template, templateID).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// FindAll 检索全部模板记录。
func (r *templateRepository) FindAll() ([]model.Template, error) {
	var templates []model.Template
	err := r.db.Find(&templates).Error
	return templates, err
}

// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 文档处理状态。template_needed 是合法的终态而非错误：
// 系统必须把原因说明带给调用方，而不是把文档悄悄留在未分类状态。
const (
	DocStatusProcessing     = "processing"      // 已入队，管道尚未完成
	DocStatusMatched        = "matched"         // 已自动匹配或人工确认模板，字段已抽取
	DocStatusSuggested      = "suggested"       // 有建议模板，等待调用方确认
	DocStatusTemplateNeeded = "template_needed" // 无合适模板，需要人工新建
	DocStatusFailed         = "failed"          // 管道处理失败
)

// Document 对应于数据库中的 'documents' 表。
type Document struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName string `gorm:"type:varchar(255);not null" json:"fileName"`
	// ObjectName 是文档在 MinIO 中的对象名。
	ObjectName string `gorm:"type:varchar(255);not null" json:"objectName"`
	// ExtractedText 是 Tika 提取的纯文本，保留用于重新抽取与问答。
	ExtractedText string `gorm:"type:longtext" json:"-"`
	Status        string `gorm:"type:varchar(32);not null;default:'processing'" json:"status"`
	// TemplateID 在匹配（自动或确认）后指向所用模板；template_needed 时为空。
	TemplateID *uint `gorm:"index" json:"templateId"`
	// MatchConfidence 是匹配决策时的综合得分或分类器自报置信度。
	MatchConfidence float64 `json:"matchConfidence"`
	// MatchRationale 是匹配决策的可读说明，template_needed 时必须非空。
	MatchRationale string    `gorm:"type:text" json:"matchRationale"`
	UploadedBy     uint      `gorm:"not null;index" json:"uploadedBy"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

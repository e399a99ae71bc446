// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"encoding/json"
	"time"
)

// 字段校验状态。
const (
	FieldStatusValid   = "valid"
	FieldStatusWarning = "warning"
	FieldStatusError   = "error"
)

// 字段形态。数组/表格字段整体作为一条记录并持有单一优先级，
// 解析后端暂不提供逐项置信度。
const (
	FieldKindScalar         = "scalar"
	FieldKindArray          = "array"
	FieldKindArrayOfObjects = "array_of_objects"
	FieldKindTable          = "table"
)

// FieldRecord 对应于数据库中的 'field_records' 表，
// 每条记录是一个 (文档, 字段名) 对的抽取结果。
// 重新抽取会整体替换该文档的全部记录；人工核验只修改
// verified/verified_value，不会改动校验诊断
//（核验纠正的是值，不是当初标记它的诊断）。
type FieldRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID uint   `gorm:"not null;index" json:"documentId"`
	FieldName  string `gorm:"type:varchar(128);not null" json:"fieldName"`
	// RawValue 以 JSON 存储抽取值（标量或数组/表格的嵌套结构）。
	RawValue string `gorm:"type:text" json:"rawValue"`
	Kind     string `gorm:"type:varchar(32);not null;default:'scalar'" json:"kind"`
	// Confidence 是解析引擎给出的置信度（0.0-1.0），写入后不可变。
	Confidence float64 `gorm:"not null" json:"confidence"`
	// Status: valid / warning / error，由校验器产出，独立于置信度。
	Status string `gorm:"type:varchar(16);not null;default:'valid'" json:"status"`
	// Errors 以 JSON 数组存储校验错误信息，可为空。
	Errors string `gorm:"type:text" json:"errors"`
	// Priority 是审核优先级序数：0=critical, 1=high, 2=medium, 3=low。
	// 0-2 自动进入人工审核队列，3 永不入队。
	Priority int `gorm:"not null;index" json:"priority"`
	// Verified 在人工核验后置位，与 VerifiedValue 一同原子更新。
	Verified      bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedValue *string    `gorm:"type:text" json:"verifiedValue"`
	VerifiedBy    *uint      `json:"verifiedBy"`
	VerifiedAt    *time.Time `json:"verifiedAt"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (FieldRecord) TableName() string {
	return "field_records"
}

// ErrorList 解析校验错误 JSON。存储为空时返回 nil。
func (r *FieldRecord) ErrorList() []string {
	if r.Errors == "" {
		return nil
	}
	var errs []string
	if err := json.Unmarshal([]byte(r.Errors), &errs); err != nil {
		return nil
	}
	return errs
}

// PriorityLabel 返回优先级的可读标签。
func PriorityLabel(priority int) string {
	switch priority {
	case 0:
		return "critical"
	case 1:
		return "high"
	case 2:
		return "medium"
	default:
		return "low"
	}
}

// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Template 对应于数据库中的 'templates' 表。
// 每个模板描述一类文档的结构：要抽取哪些字段、字段的校验规则，
// 以及用于相似度匹配的签名信息（字段名文本 + 样本文本 + 分类）。
type Template struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`
	// Name 是模板的显示名称。
	Name string `gorm:"type:varchar(128);not null" json:"name"`
	// Category 是自由文本分类标签，例如 "financial"、"technical-spec"。
	Category string `gorm:"type:varchar(64)" json:"category"`
	// FieldNames 以逗号连接存储模板声明的字段名（小写规范化，顺序与匹配无关）。
	FieldNames string `gorm:"type:text;not null" json:"fieldNames"`
	// FieldRules 以 JSON 存储各字段的校验规则（字段名 -> 规则），可为空。
	FieldRules string `gorm:"type:text" json:"fieldRules"`
	// SampleText 是该类文档的代表性文本摘录，作为相似度匹配的文本探针。
	SampleText string `gorm:"type:text" json:"sampleText"`
	// CreatedBy 记录了创建此模板的用户的 ID。
	CreatedBy uint      `gorm:"not null" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Template) TableName() string {
	return "templates"
}

// FieldNameList 返回模板声明的字段名列表（已小写规范化）。
func (t *Template) FieldNameList() []string {
	if strings.TrimSpace(t.FieldNames) == "" {
		return nil
	}
	parts := strings.Split(t.FieldNames, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		name := NormalizeFieldName(p)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FieldNameText 返回字段名以空格连接的文本，用作相似度匹配的字段名探针。
func (t *Template) FieldNameText() string {
	return strings.Join(t.FieldNameList(), " ")
}

// NormalizeFieldName 对字段名做大小写与空白规范化。
// 存储与比较统一用规范化形式，匹配与审核过滤才不会因大小写不一致错失字段。
func NormalizeFieldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// JoinFieldNames 将字段名列表规范化后以逗号连接，供存储使用。
func JoinFieldNames(names []string) string {
	normalized := make([]string, 0, len(names))
	seen := make(map[string]struct{})
	for _, n := range names {
		name := NormalizeFieldName(n)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	return strings.Join(normalized, ",")
}

// FieldRule 描述单个字段的业务校验规则。
// 规则缺失不是错误：没有声明规则的字段校验结果默认为 valid。
type FieldRule struct {
	// Kind: scalar | array | array_of_objects | table
	Kind string `json:"kind"`
	// Type: string | number | date | bool
	Type string `json:"type"`
	// Required 为 true 时空值视为错误。
	Required bool `json:"required"`
	// Min/Max 是数值类型的闭区间边界。
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
	// Enum 非空时值必须属于枚举。
	Enum []string `json:"enum,omitempty"`
	// Pattern 非空时字符串值必须匹配该正则。
	Pattern string `json:"pattern,omitempty"`
	// NotExceedField 非空时本字段数值不得超过指定字段的数值（跨字段一致性）。
	NotExceedField string `json:"not_exceed_field,omitempty"`
}

// RuleMap 解析模板的字段规则 JSON。规则为空时返回空 map。
func (t *Template) RuleMap() (map[string]FieldRule, error) {
	rules := make(map[string]FieldRule)
	if strings.TrimSpace(t.FieldRules) == "" {
		return rules, nil
	}
	if err := json.Unmarshal([]byte(t.FieldRules), &rules); err != nil {
		return nil, err
	}
	// 规则键同样规范化，保证与抽取字段名对得上
	normalized := make(map[string]FieldRule, len(rules))
	for name, rule := range rules {
		normalized[NormalizeFieldName(name)] = rule
	}
	return normalized, nil
}

// Package model 定义了与数据库表对应的 Go 结构体。
package model

// EsTemplateSignature 定义了存储在模板签名索引中的文档结构。
// 它是 Template 在相似度引擎中的投影：匹配新文档时的探针目标。
type EsTemplateSignature struct {
	TemplateID    string `json:"template_id"`
	Name          string `json:"name"`
	FieldNameText string `json:"field_name_text"`
	SampleText    string `json:"sample_text"`
	Category      string `json:"category"`
}

// EsFieldRecord 定义了存储在字段投影索引中的文档结构。
// 查询层对它执行结构化布尔查询；人工核验的修正值尽力同步到这里。
type EsFieldRecord struct {
	RecordID   string  `json:"record_id"`
	DocumentID string  `json:"document_id"`
	FieldName  string  `json:"field_name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Priority   int     `json:"priority"`
	Verified   bool    `json:"verified"`
}

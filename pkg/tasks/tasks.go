// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentProcessingTask represents the data structure for a document processing job.
// TemplateID 不为空时表示模板已经确定（人工确认建议后触发的抽取），
// 为空时管道需要先执行模板匹配。
type DocumentProcessingTask struct {
	DocumentID uint   `json:"document_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
	UserID     uint   `json:"user_id"`
	TemplateID *uint  `json:"template_id,omitempty"`
}

package lineage

import (
	"doc-audit-go/internal/model"
)

// Counts 按优先级汇总过滤后的待复核记录数，供查询结果的提示条展示。
type Counts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
}

// Total 返回三档计数之和。
func (c Counts) Total() int {
	return c.Critical + c.High + c.Medium
}

// Relevant 做纯集合交：只保留字段名被查询血缘触达的待复核记录。
// 记录的字段名在入库时已规范化为小写，血缘键同样是小写，直接查表即可。
func Relevant(open []model.FieldRecord, lin *Lineage) []model.FieldRecord {
	if lin == nil || len(lin.Fields) == 0 {
		return nil
	}
	var relevant []model.FieldRecord
	for _, rec := range open {
		if _, ok := lin.Fields[normalize(rec.FieldName)]; ok {
			relevant = append(relevant, rec)
		}
	}
	return relevant
}

// Summarize 按优先级分档统计过滤后的记录。
func Summarize(records []model.FieldRecord) Counts {
	var c Counts
	for _, rec := range records {
		switch rec.Priority {
		case 0:
			c.Critical++
		case 1:
			c.High++
		case 2:
			c.Medium++
		}
	}
	return c
}

package lineage

import (
	"encoding/json"
	"testing"

	"doc-audit-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineageOf(t *testing.T, raw string) *Lineage {
	t.Helper()
	var q map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &q))
	return NewExtractor().Extract(q)
}

func TestRelevantIntersection(t *testing.T) {
	open := []model.FieldRecord{
		{ID: 1, FieldName: "vendor_name", Priority: 1, Confidence: 0.5},
		{ID: 2, FieldName: "total_amount", Priority: 0, Confidence: 0.3},
		{ID: 3, FieldName: "remark", Priority: 2, Confidence: 0.7},
	}
	lin := lineageOf(t, `{
		"bool": {"must": [
			{"match": {"vendor_name": "acme"}},
			{"range": {"total_amount": {"gte": 100}}}
		]}
	}`)

	relevant := Relevant(open, lin)

	require.Len(t, relevant, 2)
	assert.Equal(t, uint(1), relevant[0].ID)
	assert.Equal(t, uint(2), relevant[1].ID)
}

// 查询只碰 exists 子句时，该字段的待审核记录也必须被标为相关。
func TestRelevantExistsClauseRegression(t *testing.T) {
	open := []model.FieldRecord{
		{ID: 10, FieldName: "cloud_platform", Priority: 1, Confidence: 0.42},
	}
	lin := lineageOf(t, `{"exists": {"field": "cloud_platform"}}`)

	relevant := Relevant(open, lin)

	require.Len(t, relevant, 1)
	assert.Equal(t, uint(10), relevant[0].ID)
}

func TestRelevantEmptyLineage(t *testing.T) {
	open := []model.FieldRecord{{ID: 1, FieldName: "vendor_name"}}
	assert.Nil(t, Relevant(open, nil))
	assert.Nil(t, Relevant(open, &Lineage{Fields: map[string][]string{}}))
}

// 血缘覆盖全部字段名时过滤是恒等操作，顺序与内容都不变。
func TestRelevantFullUniverseIsNoOp(t *testing.T) {
	open := []model.FieldRecord{
		{ID: 1, FieldName: "vendor_name"},
		{ID: 2, FieldName: "total_amount"},
		{ID: 3, FieldName: "remark"},
	}
	lin := &Lineage{Fields: map[string][]string{
		"vendor_name":  {"match"},
		"total_amount": {"range"},
		"remark":       {"match"},
	}}

	relevant := Relevant(open, lin)

	require.Len(t, relevant, 3)
	assert.Equal(t, open, relevant)
}

func TestRelevantNoIntersection(t *testing.T) {
	open := []model.FieldRecord{{ID: 1, FieldName: "remark"}}
	lin := lineageOf(t, `{"match": {"vendor_name": "acme"}}`)
	assert.Empty(t, Relevant(open, lin))
}

func TestSummarizeCounts(t *testing.T) {
	records := []model.FieldRecord{
		{Priority: 0},
		{Priority: 0},
		{Priority: 1},
		{Priority: 2},
		{Priority: 2},
		{Priority: 2},
	}

	counts := Summarize(records)

	assert.Equal(t, 2, counts.Critical)
	assert.Equal(t, 1, counts.High)
	assert.Equal(t, 3, counts.Medium)
	assert.Equal(t, 6, counts.Total())
}

func TestSummarizeEmpty(t *testing.T) {
	counts := Summarize(nil)
	assert.Equal(t, 0, counts.Total())
}

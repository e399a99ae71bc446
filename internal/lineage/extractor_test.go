package lineage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseQuery(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var q map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &q))
	return q
}

// exists 子句的字段名是 "field" 键的值，绝不是子句体的键。
func TestExtractExistsClause(t *testing.T) {
	q := parseQuery(t, `{"exists": {"field": "cloud_platform"}}`)

	lin := NewExtractor().Extract(q)

	assert.True(t, lin.Contains("cloud_platform"))
	assert.False(t, lin.Contains("field"))
	assert.Equal(t, []string{"cloud_platform"}, lin.FieldSet())
}

func TestExtractLeafClauses(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
		kind  string
	}{
		{"match", `{"match": {"vendor_name": "acme"}}`, "vendor_name", "match"},
		{"term", `{"term": {"currency": "CNY"}}`, "currency", "term"},
		{"terms", `{"terms": {"status": ["a", "b"]}}`, "status", "terms"},
		{"match_phrase", `{"match_phrase": {"description": "cloud hosting"}}`, "description", "match_phrase"},
		{"range", `{"range": {"total_amount": {"gte": 1000}}}`, "total_amount", "range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lin := NewExtractor().Extract(parseQuery(t, tt.query))
			require.True(t, lin.Contains(tt.field))
			assert.Contains(t, lin.Fields[tt.field], tt.kind)
		})
	}
}

func TestExtractNestedBoolFlattens(t *testing.T) {
	q := parseQuery(t, `{
		"query": {
			"bool": {
				"must": [
					{"match": {"vendor_name": "acme"}},
					{"bool": {
						"should": [
							{"term": {"currency": "USD"}},
							{"exists": {"field": "cloud_platform"}}
						],
						"must_not": {"range": {"total_amount": {"lt": 0}}}
					}}
				],
				"filter": {"term": {"verified": "false"}}
			}
		}
	}`)

	lin := NewExtractor().Extract(q)

	assert.ElementsMatch(t, []string{"vendor_name", "currency", "cloud_platform", "total_amount", "verified"}, lin.FieldSet())
	assert.Empty(t, lin.Warnings)
}

// multi_match 的字段名可能带 boost 后缀，提取时必须剥掉。
func TestExtractMultiMatchStripsBoost(t *testing.T) {
	q := parseQuery(t, `{
		"multi_match": {
			"query": "acme",
			"fields": ["vendor_name^3", "description"]
		}
	}`)

	lin := NewExtractor().Extract(q)

	assert.True(t, lin.Contains("vendor_name"))
	assert.False(t, lin.Contains("vendor_name^3"))
	assert.True(t, lin.Contains("description"))
}

// 不认识的子句记入告警并跳过，不中断其余子树的遍历。
func TestExtractUnknownClauseWarnsAndContinues(t *testing.T) {
	q := parseQuery(t, `{
		"bool": {
			"must": [
				{"fuzzy_custom": {"vendor_name": "acme"}},
				{"term": {"currency": "CNY"}}
			]
		}
	}`)

	lin := NewExtractor().Extract(q)

	assert.True(t, lin.Contains("currency"))
	assert.False(t, lin.Contains("vendor_name"))
	require.Len(t, lin.Warnings, 1)
	assert.Contains(t, lin.Warnings[0], "fuzzy_custom")
}

// 子句对象带多个键时全部遍历，已识别的照常提取，未识别的各自告警。
func TestExtractClauseObjectWalksAllKeys(t *testing.T) {
	q := parseQuery(t, `{
		"match": {"vendor_name": "acme"},
		"fuzzy_custom": {"description": "cloud"}
	}`)

	lin := NewExtractor().Extract(q)

	assert.True(t, lin.Contains("vendor_name"))
	assert.False(t, lin.Contains("description"))
	require.Len(t, lin.Warnings, 1)
	assert.Contains(t, lin.Warnings[0], "fuzzy_custom")
}

func TestExtractFieldNamesNormalized(t *testing.T) {
	q := parseQuery(t, `{"match": {"Vendor_Name": "acme"}}`)
	lin := NewExtractor().Extract(q)
	assert.True(t, lin.Contains("vendor_name"))
	assert.True(t, lin.Contains("VENDOR_NAME"))
}

func TestExtractEmptyQuery(t *testing.T) {
	lin := NewExtractor().Extract(nil)
	assert.Empty(t, lin.FieldSet())
	lin = NewExtractor().Extract(map[string]interface{}{})
	assert.Empty(t, lin.FieldSet())
}

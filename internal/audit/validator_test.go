package audit

import (
	"testing"

	"doc-audit-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestValidateNoRuleIsValid(t *testing.T) {
	v := NewValidator()
	results := v.Validate([]ExtractedField{
		{Name: "Unknown_Field", Value: "anything", Kind: model.FieldKindScalar, Confidence: 0.9},
	}, map[string]model.FieldRule{})

	require.Contains(t, results, "unknown_field")
	assert.Equal(t, model.FieldStatusValid, results["unknown_field"].Status)
	assert.Empty(t, results["unknown_field"].Messages)
}

func TestValidateRequired(t *testing.T) {
	v := NewValidator()
	rules := map[string]model.FieldRule{
		"invoice_no": {Type: "string", Required: true},
		"remark":     {Type: "string"},
	}

	results := v.Validate([]ExtractedField{
		{Name: "invoice_no", Value: "", Kind: model.FieldKindScalar, Confidence: 0.5},
		{Name: "remark", Value: "", Kind: model.FieldKindScalar, Confidence: 0.5},
	}, rules)

	assert.Equal(t, model.FieldStatusError, results["invoice_no"].Status)
	assert.NotEmpty(t, results["invoice_no"].Messages)
	// 非必填字段为空不报错
	assert.Equal(t, model.FieldStatusValid, results["remark"].Status)
}

func TestValidateNumberBounds(t *testing.T) {
	v := NewValidator()
	rules := map[string]model.FieldRule{
		"amount": {Type: "number", Min: floatPtr(0)},
	}

	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"正数金额", 1200.50, model.FieldStatusValid},
		{"负数金额", -500.0, model.FieldStatusError},
		{"数字字符串", "300.25", model.FieldStatusValid},
		{"带千分位的字符串", "1,200.50", model.FieldStatusValid},
		{"非数值", "abc", model.FieldStatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := v.Validate([]ExtractedField{
				{Name: "amount", Value: tt.value, Kind: model.FieldKindScalar, Confidence: 0.9},
			}, rules)
			assert.Equal(t, tt.want, results["amount"].Status)
		})
	}
}

func TestValidateDateAndEnum(t *testing.T) {
	v := NewValidator()
	rules := map[string]model.FieldRule{
		"issue_date": {Type: "date"},
		"currency":   {Type: "string", Enum: []string{"CNY", "USD"}},
	}

	results := v.Validate([]ExtractedField{
		{Name: "issue_date", Value: "2026-08-31", Kind: model.FieldKindScalar, Confidence: 0.9},
		{Name: "currency", Value: "EUR", Kind: model.FieldKindScalar, Confidence: 0.9},
	}, rules)

	assert.Equal(t, model.FieldStatusValid, results["issue_date"].Status)
	assert.Equal(t, model.FieldStatusError, results["currency"].Status)

	results = v.Validate([]ExtractedField{
		{Name: "issue_date", Value: "没有日期", Kind: model.FieldKindScalar, Confidence: 0.9},
	}, rules)
	assert.Equal(t, model.FieldStatusError, results["issue_date"].Status)
}

func TestValidatePattern(t *testing.T) {
	v := NewValidator()

	results := v.Validate([]ExtractedField{
		{Name: "tax_id", Value: "91310000MA1FL0001X", Kind: model.FieldKindScalar, Confidence: 0.9},
	}, map[string]model.FieldRule{
		"tax_id": {Type: "string", Pattern: `^[0-9A-Z]{18}$`},
	})
	assert.Equal(t, model.FieldStatusValid, results["tax_id"].Status)

	results = v.Validate([]ExtractedField{
		{Name: "tax_id", Value: "bad", Kind: model.FieldKindScalar, Confidence: 0.9},
	}, map[string]model.FieldRule{
		"tax_id": {Type: "string", Pattern: `^[0-9A-Z]{18}$`},
	})
	assert.Equal(t, model.FieldStatusError, results["tax_id"].Status)

	// 无法编译的正则是规则问题不是数据问题，降级为 warning
	results = v.Validate([]ExtractedField{
		{Name: "tax_id", Value: "whatever", Kind: model.FieldKindScalar, Confidence: 0.9},
	}, map[string]model.FieldRule{
		"tax_id": {Type: "string", Pattern: `([`},
	})
	assert.Equal(t, model.FieldStatusWarning, results["tax_id"].Status)
}

func TestValidateCrossField(t *testing.T) {
	v := NewValidator()
	rules := map[string]model.FieldRule{
		"tax_amount": {Type: "number", NotExceedField: "total_amount"},
	}

	results := v.Validate([]ExtractedField{
		{Name: "tax_amount", Value: 130.0, Kind: model.FieldKindScalar, Confidence: 0.9},
		{Name: "total_amount", Value: 1000.0, Kind: model.FieldKindScalar, Confidence: 0.9},
	}, rules)
	assert.Equal(t, model.FieldStatusValid, results["tax_amount"].Status)

	results = v.Validate([]ExtractedField{
		{Name: "tax_amount", Value: 1300.0, Kind: model.FieldKindScalar, Confidence: 0.9},
		{Name: "total_amount", Value: 1000.0, Kind: model.FieldKindScalar, Confidence: 0.9},
	}, rules)
	assert.Equal(t, model.FieldStatusError, results["tax_amount"].Status)

	// 对照字段缺失时跳过该检查而不是报错
	results = v.Validate([]ExtractedField{
		{Name: "tax_amount", Value: 1300.0, Kind: model.FieldKindScalar, Confidence: 0.9},
	}, rules)
	assert.Equal(t, model.FieldStatusValid, results["tax_amount"].Status)
}

func TestValidateArrayAggregation(t *testing.T) {
	v := NewValidator()
	rules := map[string]model.FieldRule{
		"line_amounts": {Kind: model.FieldKindArray, Type: "number", Min: floatPtr(0)},
	}

	results := v.Validate([]ExtractedField{
		{
			Name:       "line_amounts",
			Value:      []interface{}{100.0, -20.0, 35.5},
			Kind:       model.FieldKindArray,
			Confidence: 0.85,
		},
	}, rules)

	// 整个字段聚合为单一状态，逐项错误带序号前缀
	result := results["line_amounts"]
	assert.Equal(t, model.FieldStatusError, result.Status)
	require.Len(t, result.Messages, 1)
	assert.Contains(t, result.Messages[0], "第 2 项")
}

// 高置信度也挡不住规则违例：校验与融合串联后，
// 置信度 0.96 的负数金额仍拿到 high 优先级并进入审核队列。
func TestValidateThenFuseHighConfidenceViolation(t *testing.T) {
	v := NewValidator()
	rules := map[string]model.FieldRule{
		"total_amount": {Type: "number", Min: floatPtr(0)},
	}

	results := v.Validate([]ExtractedField{
		{Name: "total_amount", Value: -500.00, Kind: model.FieldKindScalar, Confidence: 0.96},
	}, rules)

	result := results["total_amount"]
	require.Equal(t, model.FieldStatusError, result.Status)
	require.NotEmpty(t, result.Messages)

	priority := Priority(0.96, result.Status, Thresholds{LowConfidence: 0.6, HighConfidence: 0.8})
	assert.Equal(t, PriorityHigh, priority)
	assert.True(t, QueueEligible(priority))
}

func TestValidateArrayTypeMismatch(t *testing.T) {
	v := NewValidator()
	results := v.Validate([]ExtractedField{
		{Name: "items", Value: "not an array", Kind: model.FieldKindArray, Confidence: 0.9},
	}, map[string]model.FieldRule{
		"items": {Kind: model.FieldKindArray, Type: "string"},
	})
	assert.Equal(t, model.FieldStatusError, results["items"].Status)
}

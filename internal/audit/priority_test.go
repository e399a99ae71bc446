package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultThresholds = Thresholds{LowConfidence: 0.6, HighConfidence: 0.8}

func TestPriorityFusion(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		status     string
		want       int
	}{
		{"低置信度且校验错误", 0.3, "error", PriorityCritical},
		{"低置信度但校验通过", 0.3, "valid", PriorityHigh},
		{"低置信度且有警告", 0.5, "warning", PriorityHigh},
		{"高置信度但校验错误", 0.96, "error", PriorityHigh},
		{"中置信度校验通过", 0.7, "valid", PriorityMedium},
		{"高置信度但有警告", 0.9, "warning", PriorityMedium},
		{"高置信度校验通过", 0.95, "valid", PriorityLow},
		{"置信度恰好等于低阈值", 0.6, "valid", PriorityMedium},
		{"置信度恰好等于高阈值", 0.8, "valid", PriorityLow},
		{"零置信度校验错误", 0.0, "error", PriorityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Priority(tt.confidence, tt.status, defaultThresholds)
			assert.Equal(t, tt.want, got)
		})
	}
}

// 高置信度也拦不住业务规则错误：0.96 置信度的负数金额必须进队列。
func TestPriorityHighConfidenceRuleViolation(t *testing.T) {
	got := Priority(0.96, "error", defaultThresholds)
	assert.Equal(t, PriorityHigh, got)
	assert.True(t, QueueEligible(got))
}

// 相同输入永远得到相同优先级，与调用次数和顺序无关。
func TestPriorityIsPure(t *testing.T) {
	first := Priority(0.55, "warning", defaultThresholds)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Priority(0.55, "warning", defaultThresholds))
	}
}

func TestQueueEligible(t *testing.T) {
	assert.True(t, QueueEligible(PriorityCritical))
	assert.True(t, QueueEligible(PriorityHigh))
	assert.True(t, QueueEligible(PriorityMedium))
	assert.False(t, QueueEligible(PriorityLow))
}

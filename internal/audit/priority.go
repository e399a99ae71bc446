// Package audit 实现抽取结果的规则校验与审核优先级融合。
// 校验独立于解析置信度：高置信度的字段可能因业务规则被标记 error，
// 低置信度的字段也可能通过全部规则（没有规则能发现它，但仍需要人看）。
package audit

// 审核优先级序数，0 最紧急。
const (
	PriorityCritical = 0
	PriorityHigh     = 1
	PriorityMedium   = 2
	PriorityLow      = 3
)

// Thresholds 是优先级融合使用的置信度阈值。
// 区间为半开 [low, high)：置信度恰好等于 low 时属于 medium 而不是 high。
type Thresholds struct {
	LowConfidence  float64 // 默认 0.6
	HighConfidence float64 // 默认 0.8
}

// Priority 把解析置信度与校验状态融合为单一的审核优先级序数。
// 这是 (confidence, status) 的纯函数：相同输入永远得到相同优先级，
// 与字段名、文档类型、处理顺序都无关。
//
//	0 (critical): confidence < low 且 status == error
//	1 (high):     confidence < low 或 status == error（但不同时满足）
//	2 (medium):   low <= confidence < high，或 confidence >= high 但 status 非 valid
//	3 (low):      confidence >= high 且 status == valid
func Priority(confidence float64, status string, t Thresholds) int {
	lowConf := confidence < t.LowConfidence
	isError := status == "error"

	switch {
	case lowConf && isError:
		return PriorityCritical
	case lowConf || isError:
		return PriorityHigh
	case confidence >= t.HighConfidence && status == "valid":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// QueueEligible 判断该优先级是否自动进入人工审核队列。
// 0、1、2 入队；3 永不自动入队。
func QueueEligible(priority int) bool {
	return priority <= PriorityMedium
}

// Package matching 实现文档到模板的匹配决策：
// 相似度打分（引擎相似度 + 字段重合率的加权融合）与
// 自动匹配 / 建议 / 分类器兜底 / 需要新模板的决策链。
package matching

import (
	"context"

	"doc-audit-go/internal/model"
)

// 匹配决策结果。
const (
	OutcomeAutoMatched    = "auto_matched"
	OutcomeSuggested      = "suggested"
	OutcomeTemplateNeeded = "template_needed"
)

// 综合得分的固定权重：引擎相似度 0.6，字段重合率 0.4。
const (
	engineWeight  = 0.6
	overlapWeight = 0.4
)

// Thresholds 是匹配决策的阈值配置。
// 综合得分只有相对于决策时传入的阈值才有意义，
// 阈值必须显式传入而不是在打分内部硬编码。
type Thresholds struct {
	// AutoAccept 之上自动匹配（默认 0.70）。
	AutoAccept float64
	// MinSuggest 之上作为建议返回（默认 0.40）。
	MinSuggest float64
}

// MatchCandidate 是一次匹配决策中文档与单个模板的比较结果，只在决策期间存在。
type MatchCandidate struct {
	TemplateID   uint
	TemplateName string
	// RawScore 是引擎原始相似度，量纲由引擎定义，不保证落在 [0,1]。
	RawScore float64
	// Normalized 是按本批次最大引擎得分归一化并截断到 [0,1] 的相似度。
	Normalized float64
	// Overlap 是字段重合率：|交集| / max(|文档字段|, |模板字段|)，空集时为 0。
	Overlap float64
	// Blended = Normalized*0.6 + Overlap*0.4。
	Blended float64
	// Rationale 是可以原样展示给用户的打分说明。
	Rationale string
}

// Decision 是模板匹配的最终决策。
// template_needed 是合法终态：TemplateID 为空且 Rationale 非空。
type Decision struct {
	Outcome    string
	TemplateID *uint
	Confidence float64
	Rationale  string
	// Candidates 保留打分明细，供调用方展示备选模板。
	Candidates []MatchCandidate
}

// EngineHit 是相似度引擎返回的单个 (模板, 相似度) 命中。
type EngineHit struct {
	TemplateID uint
	Score      float64
}

// SimilarityEngine 抽象外部相似度引擎。
// 引擎对两个探针（样本文本、字段名文本）做并集召回：
// 文档至少命中其中一个探针，模板才会出现在结果里。
type SimilarityEngine interface {
	RankTemplates(ctx context.Context, sampleProbe, fieldNameProbe string) ([]EngineHit, error)
}

// ClassifierResult 是外部分类器兜底的返回。
type ClassifierResult struct {
	TemplateID       *uint
	Confidence       float64
	Rationale        string
	NeedsNewTemplate bool
}

// Classifier 抽象外部分类器兜底（LLM）。
// 它接收文档文本/字段与完整的模板目录，是决策链中最昂贵的一步。
type Classifier interface {
	Classify(ctx context.Context, docText string, docFields []string, catalog []model.Template) (*ClassifierResult, error)
}

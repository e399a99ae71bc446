package matching

import (
	"context"
	"fmt"
	"time"

	"doc-audit-go/internal/model"
	"doc-audit-go/pkg/log"
)

// TemplateStore 是匹配器对模板签名存储的只读视图（快照读语义）。
type TemplateStore interface {
	FindAll() ([]model.Template, error)
}

// Matcher 按固定顺序执行匹配决策链：
// 打分 -> 自动匹配 -> 建议 -> 分类器兜底 -> 需要新模板。
// 后面的步骤严格比前面的昂贵，是兜底而不是平行选项。
type Matcher struct {
	store             TemplateStore
	scorer            *Scorer
	classifier        Classifier
	thresholds        Thresholds
	classifierTimeout time.Duration
}

// NewMatcher 创建一个新的 Matcher 实例。阈值显式传入（见配置说明）。
func NewMatcher(store TemplateStore, scorer *Scorer, classifier Classifier, thresholds Thresholds, classifierTimeout time.Duration) *Matcher {
	return &Matcher{
		store:             store,
		scorer:            scorer,
		classifier:        classifier,
		thresholds:        thresholds,
		classifierTimeout: classifierTimeout,
	}
}

// Match 对一个文档执行完整的模板匹配决策。
func (m *Matcher) Match(ctx context.Context, docText string, docFields []string) (*Decision, error) {
	templates, err := m.store.FindAll()
	if err != nil {
		return nil, fmt.Errorf("读取模板目录失败: %w", err)
	}

	// 空目录直接返回 template_needed，且不调用任何外部协作方：
	// "还没有模板" 和 "分类器没找到匹配" 是不同的失败模式，
	// 调用方可能希望区别对待（例如提示"创建第一个模板"）。
	if len(templates) == 0 {
		return &Decision{
			Outcome:   OutcomeTemplateNeeded,
			Rationale: "模板目录为空，尚未定义任何模板，请先创建模板",
		}, nil
	}

	candidates, err := m.scorer.Score(ctx, docText, docFields, templates)
	if err != nil {
		// 相似度引擎不可达时降级到分类器兜底，而不是中止整个文档的处理
		log.Warnf("[Matcher] 相似度打分失败，降级到分类器兜底: %v", err)
		candidates = nil
	}

	if len(candidates) > 0 {
		top := candidates[0]
		if top.Blended >= m.thresholds.AutoAccept {
			templateID := top.TemplateID
			return &Decision{
				Outcome:    OutcomeAutoMatched,
				TemplateID: &templateID,
				Confidence: top.Blended,
				Rationale:  top.Rationale,
				Candidates: candidates,
			}, nil
		}
		if top.Blended >= m.thresholds.MinSuggest {
			templateID := top.TemplateID
			return &Decision{
				Outcome:    OutcomeSuggested,
				TemplateID: &templateID,
				Confidence: top.Blended,
				Rationale:  top.Rationale,
				Candidates: candidates,
			}, nil
		}
	}

	return m.classify(ctx, docText, docFields, templates, candidates)
}

// classify 执行分类器兜底。超时或失败一律归结为 template_needed，
// 缓慢或故障的外部依赖只会退化为"请人来看"，绝不会变成一个错误的自信匹配。
func (m *Matcher) classify(ctx context.Context, docText string, docFields []string, templates []model.Template, candidates []MatchCandidate) (*Decision, error) {
	classifyCtx, cancel := context.WithTimeout(ctx, m.classifierTimeout)
	defer cancel()

	result, err := m.classifier.Classify(classifyCtx, docText, docFields, templates)
	if err != nil {
		log.Warnf("[Matcher] 分类器兜底失败: %v", err)
		return &Decision{
			Outcome:    OutcomeTemplateNeeded,
			Rationale:  fmt.Sprintf("相似度得分不足且分类器兜底不可用（%v），需要人工创建或指定模板", err),
			Candidates: candidates,
		}, nil
	}

	if result.NeedsNewTemplate || result.TemplateID == nil {
		rationale := result.Rationale
		if rationale == "" {
			rationale = "分类器未找到合适的模板"
		}
		return &Decision{
			Outcome:    OutcomeTemplateNeeded,
			Rationale:  rationale,
			Candidates: candidates,
		}, nil
	}

	// 分类器的结果按建议处理，置信度取分类器自报的数值
	return &Decision{
		Outcome:    OutcomeSuggested,
		TemplateID: result.TemplateID,
		Confidence: result.Confidence,
		Rationale:  result.Rationale,
		Candidates: candidates,
	}, nil
}

// Score 暴露打分器，供需要候选明细但不做决策的调用方使用。
func (m *Matcher) Score(ctx context.Context, docText string, docFields []string) ([]MatchCandidate, error) {
	templates, err := m.store.FindAll()
	if err != nil {
		return nil, err
	}
	return m.scorer.Score(ctx, docText, docFields, templates)
}

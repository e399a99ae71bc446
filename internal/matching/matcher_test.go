package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"doc-audit-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore 返回预置的模板目录。
type fakeStore struct {
	templates []model.Template
	err       error
	calls     int
}

func (f *fakeStore) FindAll() ([]model.Template, error) {
	f.calls++
	return f.templates, f.err
}

// fakeClassifier 记录调用并返回预置结果。
type fakeClassifier struct {
	result *ClassifierResult
	err    error
	calls  int
	block  bool // 阻塞到 ctx 超时，模拟缓慢的外部依赖
}

func (f *fakeClassifier) Classify(ctx context.Context, docText string, docFields []string, catalog []model.Template) (*ClassifierResult, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

var testThresholds = Thresholds{AutoAccept: 0.70, MinSuggest: 0.40}

func newTestMatcher(store *fakeStore, engine *fakeEngine, classifier *fakeClassifier) *Matcher {
	return NewMatcher(store, NewScorer(engine), classifier, testThresholds, 100*time.Millisecond)
}

func TestMatchAutoAcceptSkipsClassifier(t *testing.T) {
	store := &fakeStore{templates: []model.Template{
		makeTemplate(1, "发票", "vendor_name,total_amount"),
	}}
	engine := &fakeEngine{hits: []EngineHit{{TemplateID: 1, Score: 12.0}}}
	classifier := &fakeClassifier{}

	decision, err := newTestMatcher(store, engine, classifier).Match(context.Background(),
		"invoice text", []string{"vendor_name", "total_amount"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeAutoMatched, decision.Outcome)
	require.NotNil(t, decision.TemplateID)
	assert.Equal(t, uint(1), *decision.TemplateID)
	assert.GreaterOrEqual(t, decision.Confidence, testThresholds.AutoAccept)
	// 打分已经够高，决策链不会走到分类器
	assert.Zero(t, classifier.calls)
}

func TestMatchSuggestedBand(t *testing.T) {
	store := &fakeStore{templates: []model.Template{
		makeTemplate(1, "发票", "vendor_name,total_amount,tax_amount,issue_date,currency"),
	}}
	// 归一化 1.0*0.6 + 重合率 1/5*0.4 = 0.68，落在建议区间
	engine := &fakeEngine{hits: []EngineHit{{TemplateID: 1, Score: 8.0}}}
	classifier := &fakeClassifier{}

	decision, err := newTestMatcher(store, engine, classifier).Match(context.Background(),
		"text", []string{"vendor_name"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuggested, decision.Outcome)
	require.NotNil(t, decision.TemplateID)
	assert.InDelta(t, 0.68, decision.Confidence, 1e-9)
	assert.Zero(t, classifier.calls)
}

// 空目录是独立的失败模式：不打分、不分类，直接 template_needed。
func TestMatchEmptyCatalogNoCollaboratorCalls(t *testing.T) {
	store := &fakeStore{}
	engine := &fakeEngine{}
	classifier := &fakeClassifier{}

	decision, err := newTestMatcher(store, engine, classifier).Match(context.Background(), "text", []string{"f"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeTemplateNeeded, decision.Outcome)
	assert.Nil(t, decision.TemplateID)
	assert.NotEmpty(t, decision.Rationale)
	assert.Zero(t, engine.calls)
	assert.Zero(t, classifier.calls)
}

func TestMatchLowScoreFallsThroughToClassifier(t *testing.T) {
	tid := uint(2)
	store := &fakeStore{templates: []model.Template{
		makeTemplate(1, "发票", "a,b,c,d,e,f,g,h,i,j"),
		makeTemplate(2, "合同", "party_a,party_b"),
	}}
	engine := &fakeEngine{} // 无命中
	classifier := &fakeClassifier{result: &ClassifierResult{
		TemplateID: &tid,
		Confidence: 0.66,
		Rationale:  "文本结构与合同模板一致",
	}}

	decision, err := newTestMatcher(store, engine, classifier).Match(context.Background(), "text", []string{"party_a"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuggested, decision.Outcome)
	require.NotNil(t, decision.TemplateID)
	assert.Equal(t, tid, *decision.TemplateID)
	assert.InDelta(t, 0.66, decision.Confidence, 1e-9)
	assert.Equal(t, 1, classifier.calls)
}

func TestMatchClassifierNeedsNewTemplate(t *testing.T) {
	store := &fakeStore{templates: []model.Template{makeTemplate(1, "发票", "x")}}
	classifier := &fakeClassifier{result: &ClassifierResult{
		NeedsNewTemplate: true,
		Rationale:        "该文档与任何已知模板的结构都不一致",
	}}

	decision, err := newTestMatcher(store, &fakeEngine{}, classifier).Match(context.Background(), "text", []string{"y"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeTemplateNeeded, decision.Outcome)
	assert.Nil(t, decision.TemplateID)
	assert.Equal(t, "该文档与任何已知模板的结构都不一致", decision.Rationale)
}

// 分类器超时退化为 template_needed，绝不变成一个错误的自信匹配。
func TestMatchClassifierTimeout(t *testing.T) {
	store := &fakeStore{templates: []model.Template{makeTemplate(1, "发票", "x")}}
	classifier := &fakeClassifier{block: true}

	decision, err := newTestMatcher(store, &fakeEngine{}, classifier).Match(context.Background(), "text", []string{"y"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeTemplateNeeded, decision.Outcome)
	assert.Nil(t, decision.TemplateID)
	assert.NotEmpty(t, decision.Rationale)
}

// 引擎故障降级到分类器，而不是中止整个文档的处理。
func TestMatchEngineFailureDegradesToClassifier(t *testing.T) {
	store := &fakeStore{templates: []model.Template{makeTemplate(1, "发票", "x")}}
	engine := &fakeEngine{err: errors.New("es unreachable")}
	classifier := &fakeClassifier{result: &ClassifierResult{NeedsNewTemplate: true, Rationale: "无匹配"}}

	decision, err := newTestMatcher(store, engine, classifier).Match(context.Background(), "text", []string{"y"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeTemplateNeeded, decision.Outcome)
	assert.Equal(t, 1, classifier.calls)
}

// 端到端：五个不相关模板，引擎与分类器都给不出匹配，
// 决策必须是 template_needed 且带非空说明。
func TestMatchNoMatchEndToEnd(t *testing.T) {
	store := &fakeStore{templates: []model.Template{
		makeTemplate(1, "发票", "vendor_name,total_amount"),
		makeTemplate(2, "合同", "party_a,party_b"),
		makeTemplate(3, "简历", "name,education"),
		makeTemplate(4, "报销单", "applicant,amount"),
		makeTemplate(5, "会议纪要", "date,attendees"),
	}}
	engine := &fakeEngine{} // 两个探针都无命中
	classifier := &fakeClassifier{result: &ClassifierResult{
		NeedsNewTemplate: true,
		Rationale:        "文档是设备巡检报告，没有任何已知模板覆盖该结构",
	}}

	decision, err := newTestMatcher(store, engine, classifier).Match(context.Background(),
		"巡检报告正文", []string{"device_id", "inspection_result"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeTemplateNeeded, decision.Outcome)
	assert.Nil(t, decision.TemplateID)
	assert.NotEmpty(t, decision.Rationale)
}

func TestMatchStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	_, err := newTestMatcher(store, &fakeEngine{}, &fakeClassifier{}).Match(context.Background(), "t", nil)
	assert.Error(t, err)
}

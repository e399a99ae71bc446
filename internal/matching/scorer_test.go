package matching

import (
	"context"
	"testing"

	"doc-audit-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine 返回预置的命中列表，记录收到的探针。
type fakeEngine struct {
	hits           []EngineHit
	err            error
	calls          int
	lastSample     string
	lastFieldProbe string
}

func (f *fakeEngine) RankTemplates(ctx context.Context, sampleProbe, fieldNameProbe string) ([]EngineHit, error) {
	f.calls++
	f.lastSample = sampleProbe
	f.lastFieldProbe = fieldNameProbe
	return f.hits, f.err
}

func makeTemplate(id uint, name string, fields string) model.Template {
	return model.Template{ID: id, Name: name, FieldNames: fields}
}

func TestScoreBlendsEngineAndOverlap(t *testing.T) {
	engine := &fakeEngine{hits: []EngineHit{
		{TemplateID: 1, Score: 10.0},
		{TemplateID: 2, Score: 5.0},
	}}
	scorer := NewScorer(engine)
	templates := []model.Template{
		makeTemplate(1, "发票", "vendor_name,total_amount,tax_amount,issue_date"),
		makeTemplate(2, "合同", "party_a,party_b,total_amount,signing_date"),
	}

	candidates, err := scorer.Score(context.Background(), "some text",
		[]string{"vendor_name", "total_amount", "tax_amount", "issue_date"}, templates)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	top := candidates[0]
	assert.Equal(t, uint(1), top.TemplateID)
	// 最大引擎得分归一化到 1.0，字段全部重合，综合得分 1.0*0.6 + 1.0*0.4
	assert.InDelta(t, 1.0, top.Normalized, 1e-9)
	assert.InDelta(t, 1.0, top.Overlap, 1e-9)
	assert.InDelta(t, 1.0, top.Blended, 1e-9)

	second := candidates[1]
	assert.InDelta(t, 0.5, second.Normalized, 1e-9)
	// 交集 {total_amount}，max(4,4)=4
	assert.InDelta(t, 0.25, second.Overlap, 1e-9)
	assert.InDelta(t, 0.5*0.6+0.25*0.4, second.Blended, 1e-9)
	assert.NotEmpty(t, second.Rationale)
}

func TestScoreFieldProbeIsSortedAndNormalized(t *testing.T) {
	engine := &fakeEngine{}
	scorer := NewScorer(engine)

	_, err := scorer.Score(context.Background(), "text",
		[]string{"B_Field", "a_field", "  a_field  "}, []model.Template{makeTemplate(1, "t", "a_field")})
	require.NoError(t, err)
	assert.Equal(t, "a_field b_field", engine.lastFieldProbe)
	assert.Equal(t, "text", engine.lastSample)
}

func TestScoreSkipsStaleIndexHits(t *testing.T) {
	// 模板 99 已从数据库删除但索引里还有残留
	engine := &fakeEngine{hits: []EngineHit{
		{TemplateID: 99, Score: 20.0},
		{TemplateID: 1, Score: 10.0},
	}}
	scorer := NewScorer(engine)
	templates := []model.Template{makeTemplate(1, "发票", "vendor_name")}

	candidates, err := scorer.Score(context.Background(), "text", []string{"vendor_name"}, templates)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, uint(1), candidates[0].TemplateID)
	// 归一化用的是本批次最大得分（包含残留命中），1 号模板得 0.5
	assert.InDelta(t, 0.5, candidates[0].Normalized, 1e-9)
}

func TestScoreEmptyFieldSetsNoDivideByZero(t *testing.T) {
	engine := &fakeEngine{hits: []EngineHit{{TemplateID: 1, Score: 3.0}}}
	scorer := NewScorer(engine)
	templates := []model.Template{makeTemplate(1, "空模板", "")}

	candidates, err := scorer.Score(context.Background(), "text", nil, templates)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Zero(t, candidates[0].Overlap)
}

func TestScoreNoHits(t *testing.T) {
	scorer := NewScorer(&fakeEngine{})
	candidates, err := scorer.Score(context.Background(), "text", []string{"f"}, []model.Template{makeTemplate(1, "t", "f")})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

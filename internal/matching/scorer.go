package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"doc-audit-go/internal/model"
)

// Scorer 计算文档与各模板签名之间的综合相似度。
type Scorer struct {
	engine SimilarityEngine
}

// NewScorer 创建一个新的 Scorer 实例。
func NewScorer(engine SimilarityEngine) *Scorer {
	return &Scorer{engine: engine}
}

// Score 返回按综合得分降序排列的候选列表。
// 归一化用本批次观察到的最大引擎得分，避免为引擎的绝对分值量纲手工调参。
func (s *Scorer) Score(ctx context.Context, docText string, docFields []string, templates []model.Template) ([]MatchCandidate, error) {
	docFieldSet := normalizeFieldSet(docFields)
	fieldNameProbe := strings.Join(setToSlice(docFieldSet), " ")

	hits, err := s.engine.RankTemplates(ctx, docText, fieldNameProbe)
	if err != nil {
		return nil, fmt.Errorf("相似度引擎调用失败: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	templateByID := make(map[uint]*model.Template, len(templates))
	for i := range templates {
		templateByID[templates[i].ID] = &templates[i]
	}

	var maxRaw float64
	for _, hit := range hits {
		if hit.Score > maxRaw {
			maxRaw = hit.Score
		}
	}

	candidates := make([]MatchCandidate, 0, len(hits))
	for _, hit := range hits {
		tpl, ok := templateByID[hit.TemplateID]
		if !ok {
			// 索引里残留的已删除模板，跳过
			continue
		}

		normalized := 0.0
		if maxRaw > 0 {
			normalized = clipUnit(hit.Score / maxRaw)
		}

		tplFieldSet := normalizeFieldSet(tpl.FieldNameList())
		overlap, inter := fieldOverlap(docFieldSet, tplFieldSet)
		blended := normalized*engineWeight + overlap*overlapWeight

		candidates = append(candidates, MatchCandidate{
			TemplateID:   tpl.ID,
			TemplateName: tpl.Name,
			RawScore:     hit.Score,
			Normalized:   normalized,
			Overlap:      overlap,
			Blended:      blended,
			Rationale: fmt.Sprintf(
				"模板 '%s': 引擎相似度 %.3f（归一化 %.2f），字段重合 %d 个，重合率 %.2f，综合得分 %.2f",
				tpl.Name, hit.Score, normalized, inter, overlap, blended),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Blended > candidates[j].Blended
	})
	return candidates, nil
}

// fieldOverlap 计算字段重合率与交集大小。
// 任一字段集合为空时重合率为 0，不会出现除零。
func fieldOverlap(docFields, tplFields map[string]struct{}) (float64, int) {
	maxSize := len(docFields)
	if len(tplFields) > maxSize {
		maxSize = len(tplFields)
	}
	if maxSize == 0 {
		return 0.0, 0
	}

	inter := 0
	for name := range docFields {
		if _, ok := tplFields[name]; ok {
			inter++
		}
	}
	return float64(inter) / float64(maxSize), inter
}

// normalizeFieldSet 将字段名规范化并去重。
func normalizeFieldSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		name := model.NormalizeFieldName(n)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// clipUnit 将数值截断到 [0,1]。
func clipUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

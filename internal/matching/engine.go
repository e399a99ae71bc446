package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"doc-audit-go/internal/config"
	"doc-audit-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// esSimilarityEngine 用 Elasticsearch 实现 SimilarityEngine：
// 对模板签名索引发起一次 bool/should 查询，两个探针各带权重，
// minimum_should_match=1 保证至少命中一个探针才会出现在结果中。
type esSimilarityEngine struct {
	client *elasticsearch.Client
	cfg    config.MatchingConfig
	index  string
}

// NewESSimilarityEngine 创建基于 Elasticsearch 的相似度引擎。
func NewESSimilarityEngine(client *elasticsearch.Client, index string, cfg config.MatchingConfig) SimilarityEngine {
	return &esSimilarityEngine{client: client, cfg: cfg, index: index}
}

// RankTemplates 返回 (模板, 引擎相似度) 的排名列表。
// 得分量纲由 ES 决定，调用方负责归一化。
func (e *esSimilarityEngine) RankTemplates(ctx context.Context, sampleProbe, fieldNameProbe string) ([]EngineHit, error) {
	var should []map[string]interface{}
	if fieldNameProbe != "" {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"field_name_text": map[string]interface{}{
					"query": fieldNameProbe,
					"boost": e.cfg.FieldNameBoost,
				},
			},
		})
	}
	if sampleProbe != "" {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"sample_text": map[string]interface{}{
					"query": sampleProbe,
					"boost": e.cfg.SampleTextBoost,
				},
			},
		})
	}
	if len(should) == 0 {
		return nil, nil
	}

	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		// 引擎门槛只过滤明显无关的模板，不构成匹配决策
		"min_score": e.cfg.EngineFloor,
		"size":      50,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[SimilarityEngine] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source struct {
					TemplateID string `json:"template_id"`
				} `json:"_source"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]EngineHit, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		id, err := strconv.ParseUint(hit.Source.TemplateID, 10, 64)
		if err != nil {
			log.Warnf("[SimilarityEngine] 无法解析模板 ID '%s', 跳过该命中", hit.Source.TemplateID)
			continue
		}
		hits = append(hits, EngineHit{TemplateID: uint(id), Score: hit.Score})
	}
	return hits, nil
}

// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"doc-audit-go/internal/config"
	"doc-audit-go/internal/model"
	"doc-audit-go/pkg/log"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// templateIndexMapping 是模板签名索引的结构。
// field_name_text 与 sample_text 是相似度引擎的两个探针目标。
const templateIndexMapping = `{
	"mappings": {
		"properties": {
			"template_id": { "type": "keyword" },
			"name": { "type": "keyword" },
			"field_name_text": { "type": "text" },
			"sample_text": { "type": "text" },
			"category": { "type": "keyword" }
		}
	}
}`

// fieldIndexMapping 是抽取字段投影索引的结构，供查询层检索与审核过滤使用。
const fieldIndexMapping = `{
	"mappings": {
		"properties": {
			"record_id": { "type": "keyword" },
			"document_id": { "type": "keyword" },
			"field_name": { "type": "keyword" },
			"value": { "type": "text" },
			"confidence": { "type": "float" },
			"priority": { "type": "integer" },
			"verified": { "type": "boolean" }
		}
	}
}`

// InitES 初始化 Elasticsearch 客户端并确保两个索引存在。
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	if err := createIndexIfNotExists(esCfg.TemplateIndex, templateIndexMapping); err != nil {
		return err
	}
	return createIndexIfNotExists(esCfg.FieldIndex, fieldIndexMapping)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName, mapping string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 200 说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	// 404 说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)

	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexTemplateSignature 将模板签名写入索引（同 ID 覆盖，后写胜出）。
func IndexTemplateSignature(ctx context.Context, indexName string, doc model.EsTemplateSignature) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: doc.TemplateID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引模板签名到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index template signature")
	}

	return nil
}

// DeleteTemplateSignature 从索引中删除模板签名。
func DeleteTemplateSignature(ctx context.Context, indexName, templateID string) error {
	req := esapi.DeleteRequest{
		Index:      indexName,
		DocumentID: templateID,
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		log.Errorf("从 Elasticsearch 删除模板签名出错: %s", res.String())
		return errors.New("failed to delete template signature")
	}
	return nil
}

// IndexFieldRecord 将单条抽取字段投影写入索引。
func IndexFieldRecord(ctx context.Context, indexName string, doc model.EsFieldRecord) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: doc.RecordID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引字段记录到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index field record")
	}

	return nil
}

// UpdateFieldRecordVerification 将人工核验结果同步到字段投影。
// 这是一次尽力而为的传播：核验状态的事实来源是数据库记录，调用方失败时只记日志。
func UpdateFieldRecordVerification(ctx context.Context, indexName, recordID, value string) error {
	body := map[string]interface{}{
		"doc": map[string]interface{}{
			"verified": true,
			"value":    value,
		},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req := esapi.UpdateRequest{
		Index:      indexName,
		DocumentID: recordID,
		Body:       bytes.NewReader(bodyBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to update field record %s: %s", recordID, res.String())
	}
	return nil
}

// SearchFieldRecords 对字段投影索引执行调用方构造的查询，返回命中的投影文档。
// 查询体原样透传（包裹进 "query" 键），查询结构的解释权在调用方。
func SearchFieldRecords(ctx context.Context, indexName string, query map[string]interface{}, size int) ([]model.EsFieldRecord, error) {
	body := map[string]interface{}{
		"query": query,
		"size":  size,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(bytes.NewReader(bodyBytes)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("查询字段投影索引出错: %s", res.String())
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var sr struct {
		Hits struct {
			Hits []struct {
				Source model.EsFieldRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, err
	}

	records := make([]model.EsFieldRecord, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, nil
}

// DeleteFieldRecordsByDocument 删除某文档的全部字段投影（重新抽取前的清理）。
func DeleteFieldRecordsByDocument(ctx context.Context, indexName string, documentID uint) error {
	query := fmt.Sprintf(`{"query": {"term": {"document_id": "%d"}}}`, documentID)
	res, err := ESClient.DeleteByQuery(
		[]string{indexName},
		strings.NewReader(query),
		ESClient.DeleteByQuery.WithContext(ctx),
		ESClient.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("按文档删除字段记录出错: %s", res.String())
		return errors.New("failed to delete field records by document")
	}
	return nil
}

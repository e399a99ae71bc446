// Package parser provides a client for the external field-extraction backend.
// 解析后端是黑盒：输入文档文本（可选模板字段列表），输出候选字段值与置信度。
package parser

import (
	"bytes"
	"context"
	"doc-audit-go/internal/config"
	"doc-audit-go/pkg/log"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// FieldCandidate 表示解析后端返回的单个候选字段。
// Confidence 由解析引擎给出（0.0-1.0），语义对本服务不透明，写入后不可变。
type FieldCandidate struct {
	Name       string      `json:"name"`
	Value      interface{} `json:"value"`
	Kind       string      `json:"kind"` // scalar | array | array_of_objects | table
	Confidence float64     `json:"confidence"`
}

// Client defines the interface for a field-extraction client.
type Client interface {
	// ExtractFields 调用解析后端抽取字段。
	// fieldNames 为空时执行自由抽取（首轮解析，用于模板匹配）；
	// 非空时按给定模板字段定向抽取。
	ExtractFields(ctx context.Context, text string, fieldNames []string) ([]FieldCandidate, error)
}

type httpClient struct {
	cfg    config.ParserConfig
	client *http.Client
}

// NewClient creates a new field-extraction client.
func NewClient(cfg config.ParserConfig) Client {
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type extractRequest struct {
	Text   string   `json:"text"`
	Fields []string `json:"fields,omitempty"`
}

type extractResponse struct {
	Fields []FieldCandidate `json:"fields"`
}

// ExtractFields calls the extraction backend and returns field candidates.
func (c *httpClient) ExtractFields(ctx context.Context, text string, fieldNames []string) ([]FieldCandidate, error) {
	log.Infof("[ParserClient] 开始调用解析后端, text_len: %d, fields: %d", len(text), len(fieldNames))
	reqBody := extractRequest{
		Text:   text,
		Fields: fieldNames,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/extract", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create extract request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[ParserClient] 调用解析后端失败, error: %v", err)
		return nil, fmt.Errorf("failed to call parser api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Errorf("[ParserClient] 解析后端返回非 200 状态码: %s", resp.Status)
		return nil, fmt.Errorf("parser api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var extractResp extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extractResp); err != nil {
		log.Errorf("[ParserClient] 解析响应失败, error: %v", err)
		return nil, fmt.Errorf("failed to decode parser response: %w", err)
	}

	log.Infof("[ParserClient] 解析后端返回 %d 个候选字段", len(extractResp.Fields))
	return extractResp.Fields, nil
}

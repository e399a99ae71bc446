package lineage

import (
	"fmt"
	"sort"
	"strings"
)

// Lineage 记录一个布尔查询实际触达了哪些字段，以及每个字段出现在哪类子句中。
type Lineage struct {
	// Fields 的键是规范化（小写去空格）后的字段名，值是触达它的子句类型列表。
	Fields map[string][]string
	// Warnings 收集遍历中跳过的未知子句，供日志输出。
	Warnings []string
}

// FieldSet 返回触达字段名的有序切片。
func (l *Lineage) FieldSet() []string {
	names := make([]string, 0, len(l.Fields))
	for name := range l.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains 判断给定字段名（大小写不敏感）是否被查询触达。
func (l *Lineage) Contains(name string) bool {
	_, ok := l.Fields[normalize(name)]
	return ok
}

// 叶子子句类型到字段名位置的解释在 walkClause 中分派。
const (
	clauseMatch       = "match"
	clauseTerm        = "term"
	clauseTerms       = "terms"
	clauseMatchPhrase = "match_phrase"
	clauseRange       = "range"
	clauseMultiMatch  = "multi_match"
	clauseExists      = "exists"
	clauseBool        = "bool"
)

var boolGroups = []string{"must", "should", "must_not", "filter"}

// Extractor 从 ES 风格的布尔查询中提取字段血缘。
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract 遍历一棵查询树并返回字段血缘。
// 顶层可以带可选的 "query" 包装，也可以直接就是一个子句。
func (e *Extractor) Extract(query map[string]interface{}) *Lineage {
	lin := &Lineage{Fields: make(map[string][]string)}
	if query == nil {
		return lin
	}
	root := query
	if inner, ok := query["query"].(map[string]interface{}); ok {
		root = inner
	}
	e.walkClause(root, lin)
	return lin
}

// walkClause 按子句类型分派，遍历子句对象的全部键；
// 不认识的子句记入 Warnings 并跳过，不中断整棵树的遍历。
func (e *Extractor) walkClause(clause map[string]interface{}, lin *Lineage) {
	for kind, body := range clause {
		switch kind {
		case clauseBool:
			boolBody, ok := body.(map[string]interface{})
			if !ok {
				lin.Warnings = append(lin.Warnings, fmt.Sprintf("bool 子句体类型异常: %T", body))
				continue
			}
			for _, group := range boolGroups {
				e.walkGroup(boolBody[group], lin)
			}
		case clauseMatch, clauseTerm, clauseTerms, clauseMatchPhrase, clauseRange:
			// 这些子句的字段名就是子句体的键
			if fields, ok := body.(map[string]interface{}); ok {
				for name := range fields {
					lin.add(name, kind)
				}
			}
		case clauseMultiMatch:
			e.walkMultiMatch(body, lin)
		case clauseExists:
			// exists 的字段名是 "field" 键的值，不是子句体的键
			bodyMap, ok := body.(map[string]interface{})
			if !ok {
				lin.Warnings = append(lin.Warnings, fmt.Sprintf("exists 子句体类型异常: %T", body))
				continue
			}
			if name, ok := bodyMap["field"].(string); ok {
				lin.add(name, clauseExists)
			}
		default:
			lin.Warnings = append(lin.Warnings, fmt.Sprintf("未识别的子句类型 '%s'，已跳过", kind))
		}
	}
}

// walkGroup 处理 bool 组：既可以是单个子句对象，也可以是子句列表。
func (e *Extractor) walkGroup(group interface{}, lin *Lineage) {
	switch g := group.(type) {
	case nil:
	case map[string]interface{}:
		e.walkClause(g, lin)
	case []interface{}:
		for _, item := range g {
			if clause, ok := item.(map[string]interface{}); ok {
				e.walkClause(clause, lin)
			}
		}
	default:
		lin.Warnings = append(lin.Warnings, fmt.Sprintf("bool 组类型异常: %T", group))
	}
}

// walkMultiMatch 展开 multi_match 的 "fields" 列表，字段名可能带 "^2" 权重后缀。
func (e *Extractor) walkMultiMatch(body interface{}, lin *Lineage) {
	bodyMap, ok := body.(map[string]interface{})
	if !ok {
		lin.Warnings = append(lin.Warnings, fmt.Sprintf("multi_match 子句体类型异常: %T", body))
		return
	}
	fields, ok := bodyMap["fields"].([]interface{})
	if !ok {
		return
	}
	for _, f := range fields {
		name, ok := f.(string)
		if !ok {
			continue
		}
		if idx := strings.Index(name, "^"); idx >= 0 {
			name = name[:idx]
		}
		lin.add(name, clauseMultiMatch)
	}
}

func (l *Lineage) add(name, kind string) {
	key := normalize(name)
	if key == "" {
		return
	}
	for _, existing := range l.Fields[key] {
		if existing == kind {
			return
		}
	}
	l.Fields[key] = append(l.Fields[key], kind)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

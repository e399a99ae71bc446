package audit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"doc-audit-go/internal/model"
)

// ExtractedField 是校验器的输入：一个 (字段名, 抽取值, 置信度) 三元组。
type ExtractedField struct {
	Name       string
	Value      interface{}
	Kind       string
	Confidence float64
}

// Result 是单个字段的校验结果。
type Result struct {
	Status   string
	Messages []string
}

// 支持的日期格式，依次尝试。
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Validator 按模板声明的规则对抽取字段做确定性业务校验。
type Validator struct{}

// NewValidator 创建一个新的 Validator 实例。
func NewValidator() *Validator {
	return &Validator{}
}

// Validate 校验一批字段并返回按字段名（规范化后）索引的结果。
// 没有声明规则的字段默认 valid 且无消息：规则缺失本身不是错误。
func (v *Validator) Validate(fields []ExtractedField, rules map[string]model.FieldRule) map[string]Result {
	// 先收集数值字段，供跨字段一致性检查使用
	numericValues := make(map[string]float64)
	for _, f := range fields {
		if num, ok := numericValue(f.Value); ok {
			numericValues[model.NormalizeFieldName(f.Name)] = num
		}
	}

	results := make(map[string]Result, len(fields))
	for _, f := range fields {
		name := model.NormalizeFieldName(f.Name)
		rule, ok := rules[name]
		if !ok {
			results[name] = Result{Status: model.FieldStatusValid}
			continue
		}
		results[name] = v.validateField(f, rule, numericValues)
	}
	return results
}

// validateField 校验单个字段。数组/表格字段逐项检查，
// 但结果聚合为整个字段的单一状态（逐项置信度上游暂不支持）。
func (v *Validator) validateField(f ExtractedField, rule model.FieldRule, numericValues map[string]float64) Result {
	var errs, warns []string

	if isEmpty(f.Value) {
		if rule.Required {
			errs = append(errs, "字段为必填项，但未抽取到值")
		}
		return buildResult(errs, warns)
	}

	switch rule.Kind {
	case model.FieldKindArray, model.FieldKindArrayOfObjects, model.FieldKindTable:
		items, ok := f.Value.([]interface{})
		if !ok {
			errs = append(errs, fmt.Sprintf("期望数组类型，实际为 %T", f.Value))
			break
		}
		if rule.Kind == model.FieldKindArray {
			for i, item := range items {
				itemErrs, itemWarns := v.checkScalar(item, rule, numericValues)
				for _, e := range itemErrs {
					errs = append(errs, fmt.Sprintf("第 %d 项: %s", i+1, e))
				}
				for _, w := range itemWarns {
					warns = append(warns, fmt.Sprintf("第 %d 项: %s", i+1, w))
				}
			}
		}
	default:
		scalarErrs, scalarWarns := v.checkScalar(f.Value, rule, numericValues)
		errs = append(errs, scalarErrs...)
		warns = append(warns, scalarWarns...)
	}

	return buildResult(errs, warns)
}

// checkScalar 对单个标量值执行类型、范围、枚举、正则与跨字段检查。
func (v *Validator) checkScalar(value interface{}, rule model.FieldRule, numericValues map[string]float64) (errs, warns []string) {
	switch rule.Type {
	case "number":
		num, ok := numericValue(value)
		if !ok {
			errs = append(errs, fmt.Sprintf("期望数值类型，实际值 '%v' 无法解析为数值", value))
			return errs, warns
		}
		if rule.Min != nil && num < *rule.Min {
			errs = append(errs, fmt.Sprintf("数值 %v 小于允许的最小值 %v", num, *rule.Min))
		}
		if rule.Max != nil && num > *rule.Max {
			errs = append(errs, fmt.Sprintf("数值 %v 大于允许的最大值 %v", num, *rule.Max))
		}
		if rule.NotExceedField != "" {
			other, ok := numericValues[model.NormalizeFieldName(rule.NotExceedField)]
			if ok && num > other {
				errs = append(errs, fmt.Sprintf("数值 %v 超过了字段 '%s' 的值 %v", num, rule.NotExceedField, other))
			}
		}
	case "date":
		str, ok := value.(string)
		if !ok {
			errs = append(errs, fmt.Sprintf("期望日期字符串，实际为 %T", value))
			return errs, warns
		}
		if _, ok := parseDate(str); !ok {
			errs = append(errs, fmt.Sprintf("无法解析日期 '%s'", str))
		}
	case "bool":
		if !isBool(value) {
			errs = append(errs, fmt.Sprintf("期望布尔类型，实际值 '%v'", value))
		}
	default: // string 或未声明类型
		str := stringValue(value)
		if len(rule.Enum) > 0 && !contains(rule.Enum, str) {
			errs = append(errs, fmt.Sprintf("值 '%s' 不在允许的枚举 [%s] 中", str, strings.Join(rule.Enum, ", ")))
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				warns = append(warns, fmt.Sprintf("规则中的正则 '%s' 无法编译，跳过该检查", rule.Pattern))
			} else if !re.MatchString(str) {
				errs = append(errs, fmt.Sprintf("值 '%s' 不匹配要求的格式", str))
			}
		}
	}
	return errs, warns
}

func buildResult(errs, warns []string) Result {
	switch {
	case len(errs) > 0:
		return Result{Status: model.FieldStatusError, Messages: append(errs, warns...)}
	case len(warns) > 0:
		return Result{Status: model.FieldStatusWarning, Messages: warns}
	default:
		return Result{Status: model.FieldStatusValid}
	}
}

// numericValue 尝试把抽取值解释为数值。
// JSON 解码出的数字是 float64，但解析后端有时会把金额作为字符串返回。
func numericValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", "")), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return true
	case string:
		lower := strings.ToLower(strings.TrimSpace(v))
		return lower == "true" || lower == "false"
	default:
		return false
	}
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}

func stringValue(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}

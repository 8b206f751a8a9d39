// Package fields 将自定义字段的原始提交值转换为用于渲染的标签/值对。
package fields

import (
	"fmt"
	"strconv"
	"strings"

	"smam/backend/internal/domain"
)

// Normalizer 自定义字段规范化器
type Normalizer struct {
	defs  []domain.CustomField
	index map[string]domain.CustomField
}

// NewNormalizer 基于字段定义创建规范化器
func NewNormalizer(defs []domain.CustomField) *Normalizer {
	index := make(map[string]domain.CustomField, len(defs))
	for _, d := range defs {
		index[d.Name] = d
	}
	return &Normalizer{defs: defs, index: index}
}

// Definitions 返回字段定义（保持配置顺序）
func (n *Normalizer) Definitions() []domain.CustomField {
	return n.defs
}

// Normalize 规范化自定义字段值
//
// select 字段的原始值是 options 的下标，会被替换为对应的选项文本；
// 其他类型原样保留。结果为空的字段不会出现在返回值中，没有定义的键被忽略。
//
// 参数:
//   - values: 原始提交值
//
// 返回值:
//   - map[string]domain.FieldValue: 字段名 -> 标签/值
//   - error: select 下标非法时返回 domain.ErrFieldConfig
func (n *Normalizer) Normalize(values map[string]any) (map[string]domain.FieldValue, error) {
	out := make(map[string]domain.FieldValue, len(values))

	for name, raw := range values {
		def, ok := n.index[name]
		if !ok {
			continue
		}

		value := domain.Text(raw)
		if value == "" {
			continue
		}

		if def.Type == domain.FieldTypeSelect {
			selected, err := selectOption(def, value)
			if err != nil {
				return nil, err
			}
			value = selected
		}

		if value == "" {
			continue
		}
		out[name] = domain.FieldValue{Label: def.Label, Value: value}
	}

	return out, nil
}

// Ordered 按字段定义顺序返回规范化结果，用于渲染
func (n *Normalizer) Ordered(values map[string]domain.FieldValue) []domain.FieldValue {
	out := make([]domain.FieldValue, 0, len(values))
	for _, d := range n.defs {
		if v, ok := values[d.Name]; ok {
			out = append(out, v)
		}
	}
	return out
}

func selectOption(def domain.CustomField, raw string) (string, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: field %q: select value %q is not an option index", domain.ErrFieldConfig, def.Name, raw)
	}
	if idx < 0 || idx >= len(def.Options) {
		return "", fmt.Errorf("%w: field %q: option index %d out of range [0,%d)", domain.ErrFieldConfig, def.Name, idx, len(def.Options))
	}
	return def.Options[idx], nil
}

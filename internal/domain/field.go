package domain

import (
	"fmt"
	"strings"
)

// FieldType 自定义字段类型
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
)

// Valid 判断字段类型是否受支持
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeEmail, FieldTypeTextarea, FieldTypeSelect:
		return true
	}
	return false
}

// CustomField 自定义表单字段定义（来自外部配置，运行期只读）
type CustomField struct {
	Name     string    `json:"name" mapstructure:"name" yaml:"name"`
	Label    string    `json:"label" mapstructure:"label" yaml:"label"`
	Type     FieldType `json:"type" mapstructure:"type" yaml:"type"`
	Required bool      `json:"required" mapstructure:"required" yaml:"required"`
	Options  []string  `json:"options,omitempty" mapstructure:"options" yaml:"options"`
}

// Check 检查字段定义本身是否合法
//
// 返回值:
//   - error: 名称为空、类型未知或 select 字段缺少选项时返回错误
func (f CustomField) Check() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("custom field name must not be empty")
	}
	if !f.Type.Valid() {
		return fmt.Errorf("custom field %q: unknown type %q", f.Name, f.Type)
	}
	if f.Type == FieldTypeSelect && len(f.Options) == 0 {
		return fmt.Errorf("custom field %q: select field requires options", f.Name)
	}
	return nil
}

// FieldValue 规范化后的自定义字段值，用于模板渲染
type FieldValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

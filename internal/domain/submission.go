package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Submission 一次表单提交，仅在单个请求内存在
type Submission struct {
	Name    string         `json:"name" form:"name" validate:"required"`
	Address string         `json:"addr" form:"addr" validate:"required"`
	Subject string         `json:"subj" form:"subj" validate:"required"`
	Body    string         `json:"text" form:"text" validate:"required"`
	Token   string         `json:"token" form:"token" validate:"required"`
	Custom  map[string]any `json:"custom" form:"-" validate:"-"`
}

// CustomText 返回自定义字段值转换为文本后的结果
//
// 字段不存在或为 nil 时返回空字符串。
func (s *Submission) CustomText(name string) string {
	if s.Custom == nil {
		return ""
	}
	v, ok := s.Custom[name]
	if !ok {
		return ""
	}
	return Text(v)
}

// Text 将任意提交值转换为文本
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case []string:
		if len(val) == 0 {
			return ""
		}
		return val[0]
	default:
		return fmt.Sprint(val)
	}
}

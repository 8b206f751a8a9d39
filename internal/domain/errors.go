package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation 提交缺少必填字段
	ErrValidation = errors.New("submission invalid")
	// ErrForbidden 令牌缺失、错误或已过期
	ErrForbidden = errors.New("token rejected")
	// ErrDeliveryFailed 所有收件人均投递失败
	ErrDeliveryFailed = errors.New("delivery failed for every recipient")
	// ErrFieldConfig 自定义字段配置与提交值不匹配（服务端缺陷）
	ErrFieldConfig = errors.New("custom field configuration error")
)

// ValidationError 记录校验失败的字段
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Unwrap 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator 校验表单提交是否包含全部必填字段
//
// 内置字段（name、addr、subj、text、token）通过结构体标签校验，
// 自定义字段按配置中的 required 标记逐个校验。
type Validator struct {
	validate *validator.Validate
}

// NewValidator 创建提交校验器
func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 错误中使用 JSON 字段名，与客户端提交的键保持一致
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: validate}
}

// Validate 校验提交
//
// 参数:
//   - sub: 表单提交
//   - fields: 自定义字段定义
//
// 返回值:
//   - error: 校验通过返回 nil，否则返回 *ValidationError（可用 errors.Is(err, ErrValidation) 判断）
func (v *Validator) Validate(sub *Submission, fields []CustomField) error {
	if sub == nil {
		return &ValidationError{Fields: []string{"name", "addr", "subj", "text", "token"}}
	}

	var missing []string

	if err := v.validate.Struct(sub); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			missing = append(missing, fe.Field())
		}
	}

	for _, f := range fields {
		if !f.Required {
			continue
		}
		if err := v.validate.Var(sub.CustomText(f.Name), "required"); err != nil {
			missing = append(missing, "custom."+f.Name)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Package form 表单解析与校验
//
// 字段约束用 validator struct tag 声明，错误按字段名返回，页面在对应输入框下展示。
package form

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pearlbox/internal/shared/model"
)

// Errors 字段名 → 错误消息
type Errors map[string]string

// Add 记录字段错误，同一字段只保留第一条
func (e Errors) Add(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// Get 获取字段错误
func (e Errors) Get(field string) string {
	return e[field]
}

// Any 是否存在错误
func (e Errors) Any() bool {
	return len(e) > 0
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误中使用表单字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.Category(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// check 执行 struct tag 校验并转换为字段错误
func check(s any) Errors {
	errs := Errors{}
	err := validate.Struct(s)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("form", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "eqfield":
		return "Passwords must match."
	case "category":
		return "Not a valid choice."
	default:
		return "Invalid value."
	}
}

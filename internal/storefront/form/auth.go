package form

import (
	"net/http"
	"strings"
)

// Registration 注册表单
type Registration struct {
	Username        string `form:"username" validate:"required,min=3,max=50"`
	Email           string `form:"email" validate:"required,email,max=120"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

// NewRegistration 从请求读取注册表单
func NewRegistration(r *http.Request) Registration {
	return Registration{
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
}

// Validate 校验注册表单
func (f Registration) Validate() Errors {
	return check(f)
}

// Login 登录表单
type Login struct {
	Email    string `form:"email" validate:"required,email,max=120"`
	Password string `form:"password" validate:"required"`
}

// NewLogin 从请求读取登录表单
func NewLogin(r *http.Request) Login {
	return Login{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

// Validate 校验登录表单
func (f Login) Validate() Errors {
	return check(f)
}

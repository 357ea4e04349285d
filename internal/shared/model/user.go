// Package model 定义核心数据模型
//
//   - User：顾客与管理员账号
//   - Product：商品目录
//   - Order：订单及其后台展示视图
package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

// Valid 是否为已知角色
func (r UserRole) Valid() bool {
	return r == UserRoleCustomer || r == UserRoleAdmin
}

// User 用户
//
// 角色只能通过 promote-admin 命令修改，用户不会被删除
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // never expose in JSON
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

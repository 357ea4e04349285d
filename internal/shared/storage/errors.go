// Package storage 定义存储层领域错误
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// repository 负责将底层错误（sql.ErrNoRows、唯一约束冲突等）转换为这些领域错误。
package storage

import "errors"

var (
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突（用户名或邮箱已被使用）
	ErrDuplicate = errors.New("duplicate: entity already exists")

	// ErrInsufficientStock 库存不足，订单未创建
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQuantity 下单数量必须为正整数
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrProductInUse 商品已有订单引用，不能删除
	ErrProductInUse = errors.New("product is referenced by existing orders")
)

// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：repository/（PostgreSQL 与 SQLite 共用）
//   - 初始化时通过 factory 包创建并注入
package storage

import (
	"context"

	"pearlbox/internal/shared/model"
)

// UserStore 用户存储接口
//
// Get* 方法在用户不存在时返回 (nil, nil)
type UserStore interface {
	// CreateUser 创建用户，用户名或邮箱冲突时返回 ErrDuplicate；成功后回填 ID
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// FindUserByUsernameOrEmail 查找用户名或邮箱任一匹配的用户
	FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	// SetUserRole 修改角色，用户不存在时返回 ErrNotFound
	SetUserRole(ctx context.Context, id int64, role model.UserRole) error
}

// ProductStore 商品存储接口
//
// GetProduct 在商品不存在时返回 (nil, nil)
type ProductStore interface {
	// CreateProduct 创建商品，成功后回填 ID 与 CreatedAt
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	CountProducts(ctx context.Context) (int, error)
	// UpdateProduct 部分更新，返回更新后的商品；不存在时返回 ErrNotFound
	UpdateProduct(ctx context.Context, id int64, update model.ProductUpdate) (*model.Product, error)
	// DeleteProduct 删除商品；不存在时返回 ErrNotFound，被订单引用时返回 ErrProductInUse
	DeleteProduct(ctx context.Context, id int64) error
}

// OrderStore 订单存储接口
type OrderStore interface {
	// PlaceOrder 在同一事务中扣减库存并创建订单
	//
	// 库存不足返回 ErrInsufficientStock，商品不存在返回 ErrNotFound，
	// 两种情况下库存与订单表均不变
	PlaceOrder(ctx context.Context, userID, productID int64, quantity int) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*model.OrderView, error)
	ListAllOrders(ctx context.Context) ([]*model.OrderView, error)
	CountOrdersByProduct(ctx context.Context, productID int64) (int, error)
	// MarkOrderDelivered Pending → Delivered
	//
	// 返回 changed=false 表示订单已是 Delivered（幂等）；订单不存在返回 ErrNotFound
	MarkOrderDelivered(ctx context.Context, id int64) (changed bool, err error)
}

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	UserStore
	ProductStore
	OrderStore

	// Ping 检查数据库连接（健康检查用）
	Ping(ctx context.Context) error
	Close() error
}

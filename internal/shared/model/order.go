package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态，只能 Pending → Delivered
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusDelivered OrderStatus = "Delivered"
)

// Order 订单
//
// 只由下单流程创建，不会被删除
type Order struct {
	ID        int64       `json:"id" db:"id"`
	UserID    int64       `json:"user_id" db:"user_id"`
	ProductID int64       `json:"product_id" db:"product_id"`
	Quantity  int         `json:"quantity" db:"quantity"`
	Status    OrderStatus `json:"order_status" db:"order_status"`
	OrderDate time.Time   `json:"order_date" db:"order_date"`
}

// IsDelivered 是否已发货
func (o *Order) IsDelivered() bool {
	return o.Status == OrderStatusDelivered
}

// OrderView 订单展示视图（关联用户与商品）
type OrderView struct {
	Order
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
}

// Total 订单金额
func (v *OrderView) Total() decimal.Decimal {
	return v.ProductPrice.Mul(decimal.NewFromInt(int64(v.Quantity)))
}

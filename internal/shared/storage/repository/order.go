package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/storage"
)

// PlaceOrder 扣减库存并创建订单（单事务）
//
// 库存扣减是条件 UPDATE：只有 stock >= quantity 时才会命中行。
// PostgreSQL 下行锁保证并发下单串行；SQLite 下单连接 + BEGIN IMMEDIATE 保证串行。
func (s *Store) PlaceOrder(ctx context.Context, userID, productID int64, quantity int) (order *model.Order, err error) {
	if quantity <= 0 {
		return nil, storage.ErrInvalidQuantity
	}

	start := time.Now()
	defer func() {
		if err != nil && !errors.Is(err, storage.ErrInsufficientStock) && !errors.Is(err, storage.ErrNotFound) {
			s.log.DBQueryLog("place_order", "orders", time.Since(start), err)
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $3`),
		quantity, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	if n == 0 {
		// 区分商品不存在与库存不足
		var stock int
		err := tx.QueryRowContext(ctx, s.rebind(
			`SELECT stock FROM products WHERE id = $1`), productID).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, storage.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("load stock: %w", err)
		}
		return nil, fmt.Errorf("product %d has %d left, requested %d: %w",
			productID, stock, quantity, storage.ErrInsufficientStock)
	}

	order = &model.Order{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Status:    model.OrderStatusPending,
		OrderDate: s.now(),
	}
	err = tx.QueryRowContext(ctx, s.rebind(
		`INSERT INTO orders (user_id, product_id, quantity, order_status, order_date)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`),
		order.UserID, order.ProductID, order.Quantity, order.Status, order.OrderDate,
	).Scan(&order.ID)
	if err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return order, nil
}

// GetOrder 通过 ID 查找订单，不存在时返回 (nil, nil)
func (s *Store) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o := &model.Order{}
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, user_id, product_id, quantity, order_status, order_date
		 FROM orders WHERE id = $1`), id,
	).Scan(&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.Status, &o.OrderDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

const orderViewQuery = `SELECT o.id, o.user_id, o.product_id, o.quantity, o.order_status, o.order_date,
	u.username, u.email, p.name, p.price
	FROM orders o
	JOIN users u ON u.id = o.user_id
	JOIN products p ON p.id = o.product_id`

func (s *Store) listOrderViews(ctx context.Context, query string, args ...any) ([]*model.OrderView, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var views []*model.OrderView
	for rows.Next() {
		v := &model.OrderView{}
		if err := rows.Scan(&v.ID, &v.UserID, &v.ProductID, &v.Quantity, &v.Status, &v.OrderDate,
			&v.Username, &v.Email, &v.ProductName, &v.ProductPrice); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListOrdersByUser 用户自己的订单，最新的在前
func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]*model.OrderView, error) {
	return s.listOrderViews(ctx,
		orderViewQuery+` WHERE o.user_id = $1 ORDER BY o.order_date DESC, o.id DESC`, userID)
}

// ListAllOrders 全部订单（后台），最新的在前
func (s *Store) ListAllOrders(ctx context.Context) ([]*model.OrderView, error) {
	return s.listOrderViews(ctx, orderViewQuery+` ORDER BY o.order_date DESC, o.id DESC`)
}

// CountOrdersByProduct 引用某商品的订单数
func (s *Store) CountOrdersByProduct(ctx context.Context, productID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM orders WHERE product_id = $1`), productID).Scan(&n)
	return n, err
}

// MarkOrderDelivered 标记订单已发货
func (s *Store) MarkOrderDelivered(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE orders SET order_status = $1 WHERE id = $2 AND order_status <> $3`),
		model.OrderStatusDelivered, id, model.OrderStatusDelivered)
	if err != nil {
		return false, fmt.Errorf("mark delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	existing, err := s.GetOrder(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, storage.ErrNotFound
	}
	return false, nil
}

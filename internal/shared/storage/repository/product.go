package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/storage"
	"pearlbox/internal/shared/storage/dbutil"
)

const productColumns = `id, name, price, description, category, stock, image, created_at`

func scanProduct(row rowScanner) (*model.Product, error) {
	p := &model.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Category,
		&p.Stock, &p.Image, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProduct 创建商品
func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO products (name, price, description, category, stock, image, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`),
		p.Name, p.Price, p.Description, p.Category, p.Stock, p.Image, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// GetProduct 通过 ID 查找商品
func (s *Store) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.getProduct(ctx, s.db, id)
}

func (s *Store) getProduct(ctx context.Context, q queryer, id int64) (*model.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, s.rebind(
		`SELECT `+productColumns+` FROM products WHERE id = $1`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// productOrderBy 排序子句
func productOrderBy(sort model.ProductSort) string {
	switch sort {
	case model.SortPriceAsc:
		return "ORDER BY price ASC, id ASC"
	case model.SortPriceDesc:
		return "ORDER BY price DESC, id ASC"
	case model.SortNewest:
		return "ORDER BY created_at DESC, id DESC"
	default:
		return "ORDER BY id ASC"
	}
}

// ListProducts 按分类过滤、排序并限制条数
func (s *Store) ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	qb := dbutil.NewQueryBuilder(`SELECT ` + productColumns + ` FROM products`)
	if filter.Category != "" {
		qb.Where("category = $?", filter.Category)
	}
	qb.Suffix(productOrderBy(filter.Sort))
	if filter.Limit > 0 {
		qb.Suffix("LIMIT $?", filter.Limit)
	}
	query, args := qb.Build(s.dialect)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountProducts 商品总数
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

// productAssignments 只为非 nil 字段生成 SET 子句
//
// 未提交的列（尤其是 stock）不写回，避免覆盖并发下单已提交的扣减
func productAssignments(update model.ProductUpdate) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}
	if update.Stock != nil {
		add("stock", *update.Stock)
	}
	if update.Image != nil {
		add("image", *update.Image)
	}
	return sets, args
}

// UpdateProduct 部分更新商品，nil 字段保持数据库中的当前值
func (s *Store) UpdateProduct(ctx context.Context, id int64, update model.ProductUpdate) (*model.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getProduct(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if current == nil {
		return nil, storage.ErrNotFound
	}

	sets, args := productAssignments(update)
	if len(sets) == 0 {
		return current, nil
	}
	args = append(args, id)
	_, err = tx.ExecContext(ctx, s.rebind(fmt.Sprintf(
		`UPDATE products SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))), args...)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	// 重新读取，拿到包含并发扣减后的库存
	updated, err := s.getProduct(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}
	if updated == nil {
		return nil, storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// DeleteProduct 删除商品
//
// 订单只引用商品不做级联，已有订单的商品不能删除
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var refs int
	if err := tx.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM orders WHERE product_id = $1`), id).Scan(&refs); err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("product %d has %d orders: %w", id, refs, storage.ErrProductInUse)
	}

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM products WHERE id = $1`), id)
	if err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return storage.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/storage"
)

const userColumns = `id, username, email, password_hash, role, created_at`

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.UserRoleCustomer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO users (username, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`),
		user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("create user %q: %w", user.Username, storage.ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID 通过 ID 查找用户
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = $1`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetUserByEmail 通过邮箱查找用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM users WHERE email = $1`), email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// FindUserByUsernameOrEmail 注册前的重复检查
func (s *Store) FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $2 ORDER BY id LIMIT 1`),
		username, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// SetUserRole 修改用户角色
func (s *Store) SetUserRole(ctx context.Context, id int64, role model.UserRole) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET role = $1 WHERE id = $2`), role, id)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

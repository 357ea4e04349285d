// Package auth 会话认证：密码哈希、会话令牌、HTTP 中间件与路由守卫
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"pearlbox/internal/shared/model"
)

var (
	// ErrUnauthenticated 当前请求没有登录用户
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden 已登录但角色不足
	ErrForbidden = errors.New("insufficient role")
	// ErrInvalidToken 会话令牌签名错误、过期或格式不对
	ErrInvalidToken = errors.New("invalid session token")
)

// contextKey context 键类型
type contextKey string

const (
	ctxKeyUser  contextKey = "auth_user"
	ctxKeyState contextKey = "session_state"
)

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// VerifyCredentials 校验用户密码
//
// user 为 nil 时仍对一个固定哈希做一次比较，使邮箱不存在与密码错误耗时一致
func VerifyCredentials(user *model.User, password string) bool {
	if user == nil {
		dummyOnce.Do(func() {
			h, _ := HashPassword("pearlbox-dummy-password")
			dummyHash = h
		})
		CheckPassword(password, dummyHash)
		return false
	}
	return CheckPassword(password, user.PasswordHash)
}

// ============================================================================
// 会话令牌
// ============================================================================

// TokenIssuer 签发与校验会话 Cookie 中的 JWT
//
// 令牌只携带会话 ID（jti），身份与角色始终从服务端读取
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer 创建令牌签发器
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	return &TokenIssuer{secret: []byte(secret)}, nil
}

// Issue 为会话签发令牌
func (t *TokenIssuer) Issue(sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse 校验令牌并返回会话 ID
func (t *TokenIssuer) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithUser 将当前用户注入 context
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFromContext 从 context 获取当前用户，匿名时返回 nil
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(ctxKeyUser).(*model.User)
	return user
}

// RequireAuthenticated 要求已登录
func RequireAuthenticated(ctx context.Context) (*model.User, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireRole 要求指定角色
func RequireRole(user *model.User, role model.UserRole) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if user.Role != role {
		return ErrForbidden
	}
	return nil
}

package auth

import (
	"context"
	"errors"
	"net/http"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/storage"
	"pearlbox/internal/storefront/form"
	"pearlbox/internal/storefront/view"
	"pearlbox/pkg/logging"
)

// UserStore 注册与登录需要的用户存储能力
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
}

// Renderer 页面渲染
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// Handler 注册、登录、登出
type Handler struct {
	users    UserStore
	sessions *Manager
	view     Renderer
	limiter  *Limiter
	log      *logging.Logger
}

// NewHandler 创建认证处理器，limiter 为 nil 时不限流
func NewHandler(users UserStore, sessions *Manager, v Renderer, limiter *Limiter, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		users:    users,
		sessions: sessions,
		view:     v,
		limiter:  limiter,
		log:      log.Named("auth"),
	}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /register", h.RegisterPage)
	mux.HandleFunc("POST /register", h.Register)
	mux.Handle("GET /logout", h.sessions.LoginRequiredFunc(h.Logout))
}

// throttled 超出频率时提示并跳转回表单页
func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, back string) bool {
	if h.limiter == nil || h.limiter.Allow(ClientIP(r)) {
		return false
	}
	h.log.Warn("[auth] Rate limit exceeded", "path", r.URL.Path, "client_ip", ClientIP(r))
	h.sessions.AddFlash(w, r, cache.FlashDanger, "Too many attempts. Please wait a moment and try again.")
	http.Redirect(w, r, back, http.StatusSeeOther)
	return true
}

// RegisterPage 注册表单
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, view.PageRegister, view.AuthFormData{})
}

// Register 用户注册
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.throttled(w, r, "/register") {
		return
	}

	f := form.NewRegistration(r)
	if errs := f.Validate(); errs.Any() {
		h.view.Render(w, r, http.StatusUnprocessableEntity, view.PageRegister, view.AuthFormData{
			Username: f.Username,
			Email:    f.Email,
			Errors:   errs,
		})
		return
	}

	// 检查用户名或邮箱是否已注册
	existing, err := h.users.FindUserByUsernameOrEmail(r.Context(), f.Username, f.Email)
	if err != nil {
		h.fail(w, r, err, "/register", "[auth] FindUserByUsernameOrEmail failed")
		return
	}
	if existing != nil {
		h.duplicate(w, r)
		return
	}

	hash, err := HashPassword(f.Password)
	if err != nil {
		h.fail(w, r, err, "/register", "[auth] HashPassword failed")
		return
	}

	user := &model.User{
		Username:     f.Username,
		Email:        f.Email,
		PasswordHash: hash,
		Role:         model.UserRoleCustomer,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		// 并发注册时由唯一约束兜底
		if errors.Is(err, storage.ErrDuplicate) {
			h.duplicate(w, r)
			return
		}
		h.fail(w, r, err, "/register", "[auth] CreateUser failed")
		return
	}

	h.log.WithUserID(user.ID).Info("[auth] User registered", "email", user.Email)
	h.sessions.AddFlash(w, r, cache.FlashSuccess, "Registration successful. Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) duplicate(w http.ResponseWriter, r *http.Request) {
	h.sessions.AddFlash(w, r, cache.FlashDanger, "User with that username or email already exists")
	http.Redirect(w, r, "/register", http.StatusSeeOther)
}

// LoginPage 登录表单
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, view.PageLogin, view.AuthFormData{})
}

// Login 用户登录
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.throttled(w, r, "/login") {
		return
	}

	f := form.NewLogin(r)
	if errs := f.Validate(); errs.Any() {
		h.view.Render(w, r, http.StatusUnprocessableEntity, view.PageLogin, view.AuthFormData{
			Email:  f.Email,
			Errors: errs,
		})
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), f.Email)
	if err != nil {
		h.fail(w, r, err, "/login", "[auth] GetUserByEmail failed")
		return
	}
	if !VerifyCredentials(user, f.Password) {
		h.log.Info("[auth] Login failed", "email", f.Email, "client_ip", ClientIP(r))
		h.sessions.AddFlash(w, r, cache.FlashDanger, "Invalid email or password")
		h.view.Render(w, r, http.StatusUnauthorized, view.PageLogin, view.AuthFormData{Email: f.Email})
		return
	}

	if err := h.sessions.Login(w, r, user); err != nil {
		h.fail(w, r, err, "/login", "[auth] Failed to create session")
		return
	}
	h.sessions.AddFlash(w, r, cache.FlashSuccess, "Logged in successfully")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout 用户登出
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.log.WithError(err).Warn("[auth] Failed to delete session")
	}
	h.sessions.AddFlash(w, r, cache.FlashSuccess, "Logged out successfully")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail 意外错误：记录日志并提示重试
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, back, msg string) {
	h.log.WithContext(r.Context()).WithError(err).Error(msg)
	h.sessions.AddFlash(w, r, cache.FlashDanger, "Something went wrong. Please try again.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

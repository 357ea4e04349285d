// Package server 路由配置与核心基础设施
//
// 本包把各功能包组装为一个 http.Handler：
//   - catalog: 首页、商品列表、商品详情与下单、我的订单、联系页、商品图片
//   - auth: 注册、登录、登出，以及会话中间件和路由守卫
//   - admin: 商品维护与订单发货
//   - /health、/metrics、/static/ 基础设施路由
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/metrics"
	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/notify"
	"pearlbox/internal/shared/objstore"
	"pearlbox/internal/shared/storage"
	"pearlbox/internal/storefront/admin"
	"pearlbox/internal/storefront/auth"
	"pearlbox/internal/storefront/catalog"
	"pearlbox/internal/storefront/order"
	"pearlbox/internal/storefront/view"
	"pearlbox/pkg/logging"
)

// Deps 服务依赖，由 main 创建后注入
type Deps struct {
	Store    storage.PersistentStore
	Sessions cache.SessionStore
	Notifier notify.Notifier
	Images   objstore.Store
	Metrics  *metrics.Metrics
	Logger   *logging.Logger

	SecretKey     string
	SessionTTL    time.Duration
	SecureCookies bool
	AdminEmail    string

	Templates fs.FS
	Static    fs.FS

	// Limiter 登录/注册限流，为 nil 时使用默认值
	Limiter *auth.Limiter
}

func (d Deps) validate() error {
	switch {
	case d.Store == nil:
		return errors.New("store is required")
	case d.Sessions == nil:
		return errors.New("session store is required")
	case d.Notifier == nil:
		return errors.New("notifier is required")
	case d.Images == nil:
		return errors.New("image store is required")
	case d.Templates == nil:
		return errors.New("templates are required")
	}
	return nil
}

// Server 店铺 HTTP 服务
type Server struct {
	deps     Deps
	sessions *auth.Manager
	orders   *order.Service
	view     *view.Renderer
	log      *logging.Logger
}

// New 组装服务
func New(d Deps) (*Server, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Limiter == nil {
		d.Limiter = auth.NewLimiter(20, 5)
	}

	tokens, err := auth.NewTokenIssuer(d.SecretKey)
	if err != nil {
		return nil, err
	}
	sessions := auth.NewManager(d.Sessions, d.Store, tokens, auth.ManagerConfig{
		TTL:    d.SessionTTL,
		Secure: d.SecureCookies,
	}, d.Logger)

	renderer, err := view.New(d.Templates, func(w http.ResponseWriter, r *http.Request) (*model.User, []cache.Flash) {
		return auth.UserFromContext(r.Context()), sessions.PopFlashes(w, r)
	}, d.Logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		deps:     d,
		sessions: sessions,
		orders:   order.NewService(d.Store, d.Notifier, d.AdminEmail, d.Metrics, d.Logger),
		view:     renderer,
		log:      d.Logger.Named("storefront"),
	}, nil
}

// Router 返回配置好的 HTTP 路由
//
// 前台:
//   - GET  /                       - 首页（前 5 个商品）
//   - GET  /shop                   - 商品列表（?category=&sort_by=）
//   - GET  /product/{id}           - 商品详情
//   - POST /product/{id}           - 下单（需登录）
//   - GET  /dashboard              - 我的订单（需登录）
//   - GET  /contact                - 联系页
//   - GET  /static/images/{name}   - 商品图片
//
// 认证:
//   - GET|POST /login, GET|POST /register, GET /logout
//
// 后台（管理员）:
//   - GET /admin, GET|POST /admin/add_product, GET|POST /admin/edit_product/{id}
//   - POST /admin/delete_product/{id}, POST /admin/mark_delivered/{id}
//
// 基础设施:
//   - GET /health, GET /metrics, GET /static/
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	catalog.NewHandler(s.deps.Store, s.orders, s.sessions, s.view, s.deps.Images, s.deps.Logger).RegisterRoutes(mux)
	auth.NewHandler(s.deps.Store, s.sessions, s.view, s.deps.Limiter, s.deps.Logger).RegisterRoutes(mux)
	admin.NewHandler(s.deps.Store, s.orders, s.sessions, s.view, s.deps.Images, s.deps.Metrics, s.deps.Logger).RegisterRoutes(mux)

	if s.deps.Static != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.deps.Static))))
	}

	// 页面路由经过会话中间件
	pages := s.sessions.Middleware(mux)

	top := http.NewServeMux()
	top.HandleFunc("GET /health", s.Health)
	top.Handle("GET /metrics", s.deps.Metrics.Handler())
	top.Handle("/", pages)

	return requestID(s.recoverer(s.accessLog(s.deps.Metrics.Middleware(top))))
}

// Health 健康检查，数据库不可用时返回 503
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.log.WithError(err).Warn("[storefront] Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RefreshProductCount 启动时初始化商品数量指标
func (s *Server) RefreshProductCount(ctx context.Context) {
	n, err := s.deps.Store.CountProducts(ctx)
	if err != nil {
		s.log.WithError(err).Warn("[storefront] CountProducts failed")
		return
	}
	s.deps.Metrics.SetProductsCount(n)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

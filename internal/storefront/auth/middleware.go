package auth

import (
	"net/http"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/model"
)

// LoginRequired 未登录时提示并跳转登录页
func (m *Manager) LoginRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := RequireAuthenticated(r.Context()); err != nil {
			m.AddFlash(w, r, cache.FlashWarning, "Please log in to access this page.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly 管理员专属路由，其他访客一律跳转首页
func (m *Manager) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if err := RequireRole(user, model.UserRoleAdmin); err != nil {
			log := m.log.WithContext(r.Context())
			if user != nil {
				log = log.WithUserID(user.ID)
			}
			log.Warn("[auth] Admin access denied", "method", r.Method, "path", r.URL.Path)
			m.AddFlash(w, r, cache.FlashDanger, "Admin access required")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginRequiredFunc HandlerFunc 版本
func (m *Manager) LoginRequiredFunc(fn http.HandlerFunc) http.Handler {
	return m.LoginRequired(fn)
}

// AdminOnlyFunc HandlerFunc 版本
func (m *Manager) AdminOnlyFunc(fn http.HandlerFunc) http.Handler {
	return m.AdminOnly(fn)
}

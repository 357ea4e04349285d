package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/model"
	"pearlbox/pkg/logging"
)

// CookieName 会话 Cookie 名称
const CookieName = "pearlbox_session"

// UserLookup 按 ID 读取用户（每个请求重新读取，角色不信任 Cookie）
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// ManagerConfig 会话配置
type ManagerConfig struct {
	TTL    time.Duration
	Secure bool // 生产环境只通过 HTTPS 发送 Cookie
}

// Manager 服务端会话管理
//
// Cookie 中保存签名的会话 ID，会话记录（用户 ID、待展示的提示消息）保存在 SessionStore 中
type Manager struct {
	store  cache.SessionStore
	users  UserLookup
	tokens *TokenIssuer
	ttl    time.Duration
	secure bool
	log    *logging.Logger
	now    func() time.Time
}

// NewManager 创建会话管理器
func NewManager(store cache.SessionStore, users UserLookup, tokens *TokenIssuer, cfg ManagerConfig, log *logging.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		store:  store,
		users:  users,
		tokens: tokens,
		ttl:    cfg.TTL,
		secure: cfg.Secure,
		log:    log.Named("auth"),
		now:    time.Now,
	}
}

// state 单个请求内的会话状态
type state struct {
	session *cache.Session
}

func stateFrom(r *http.Request) *state {
	if st, ok := r.Context().Value(ctxKeyState).(*state); ok {
		return st
	}
	return &state{}
}

// load 从 Cookie 解析会话，无效或不存在时返回 nil
func (m *Manager) load(r *http.Request) *cache.Session {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	id, err := m.tokens.Parse(c.Value)
	if err != nil {
		m.log.Debug("[auth] Rejected session cookie", "error", err)
		return nil
	}
	s, err := m.store.GetSession(r.Context(), id)
	if err != nil {
		m.log.WithError(err).Warn("[auth] Failed to load session")
		return nil
	}
	return s
}

// Middleware 解析会话并把当前用户注入 context
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)

		var user *model.User
		if sess.Authenticated() {
			u, err := m.users.GetUserByID(r.Context(), sess.UserID)
			if err != nil {
				m.log.WithError(err).WithUserID(sess.UserID).Error("[auth] Failed to load session user")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			user = u
		}

		ctx := context.WithValue(r.Context(), ctxKeyState, &state{session: sess})
		ctx = WithUser(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) newSession(userID int64) *cache.Session {
	now := m.now().UTC()
	return &cache.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
}

// save 保存会话并下发 Cookie
func (m *Manager) save(w http.ResponseWriter, r *http.Request, s *cache.Session) error {
	if err := m.store.SaveSession(r.Context(), s); err != nil {
		return err
	}
	token, err := m.tokens.Issue(s.ID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// AddFlash 追加一条提示消息，匿名访客首次添加时创建会话
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	st := stateFrom(r)
	if st.session == nil {
		st.session = m.newSession(0)
	}
	st.session.Flashes = append(st.session.Flashes, cache.Flash{Category: category, Message: message})
	if err := m.save(w, r, st.session); err != nil {
		m.log.WithError(err).Warn("[auth] Failed to save flash message")
	}
}

// PopFlashes 取出并清空待展示的提示消息
func (m *Manager) PopFlashes(w http.ResponseWriter, r *http.Request) []cache.Flash {
	st := stateFrom(r)
	if st.session == nil || len(st.session.Flashes) == 0 {
		return nil
	}
	flashes := st.session.Flashes
	st.session.Flashes = nil
	if err := m.store.SaveSession(r.Context(), st.session); err != nil {
		m.log.WithError(err).Warn("[auth] Failed to clear flash messages")
	}
	return flashes
}

// Login 为用户建立新会话
//
// 旧会话 ID 作废，未展示的提示消息迁移到新会话
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, user *model.User) error {
	if user == nil || user.ID == 0 {
		return errors.New("login requires a persisted user")
	}
	st := stateFrom(r)

	var pending []cache.Flash
	if st.session != nil {
		pending = st.session.Flashes
		if err := m.store.DeleteSession(r.Context(), st.session.ID); err != nil {
			m.log.WithError(err).Warn("[auth] Failed to delete previous session")
		}
	}

	s := m.newSession(user.ID)
	s.Flashes = pending
	if err := m.save(w, r, s); err != nil {
		return err
	}
	st.session = s
	m.log.WithUserID(user.ID).Info("[auth] User logged in", "email", user.Email)
	return nil
}

// Logout 销毁服务端会话并清除 Cookie
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r)
	if st.session != nil {
		if err := m.store.DeleteSession(r.Context(), st.session.ID); err != nil {
			return err
		}
		m.log.WithUserID(st.session.UserID).Info("[auth] User logged out")
		st.session = nil
	}
	m.clearCookie(w)
	return nil
}

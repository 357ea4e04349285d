package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/model"
	"pearlbox/pkg/logging"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]model.User
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUsers) setRole(id int64, role model.UserRole) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.Role = role
	f.users[id] = u
}

type sessionHarness struct {
	server  *httptest.Server
	client  *http.Client
	store   *cache.MemoryStore
	manager *Manager
	users   *fakeUsers
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret")
	require.NoError(t, err)

	h := &sessionHarness{
		store: cache.NewMemoryStore(),
		users: newFakeUsers(
			model.User{ID: 1, Username: "alice", Role: model.UserRoleCustomer},
			model.User{ID: 2, Username: "root", Role: model.UserRoleAdmin},
		),
	}
	h.manager = NewManager(h.store, h.users, issuer, ManagerConfig{TTL: time.Hour}, logging.Discard())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /whoami", func(w http.ResponseWriter, r *http.Request) {
		if u := UserFromContext(r.Context()); u != nil {
			io.WriteString(w, u.Username)
			return
		}
		io.WriteString(w, "anonymous")
	})
	mux.HandleFunc("GET /flash", func(w http.ResponseWriter, r *http.Request) {
		h.manager.AddFlash(w, r, cache.FlashInfo, r.URL.Query().Get("msg"))
	})
	mux.HandleFunc("GET /pop", func(w http.ResponseWriter, r *http.Request) {
		for _, f := range h.manager.PopFlashes(w, r) {
			fmt.Fprintf(w, "%s:%s;", f.Category, f.Message)
		}
	})
	mux.HandleFunc("GET /login/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		u, _ := h.users.GetUserByID(r.Context(), id)
		assert.NoError(t, h.manager.Login(w, r, u))
	})
	mux.HandleFunc("GET /logout", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, h.manager.Logout(w, r))
	})
	mux.Handle("GET /private", h.manager.LoginRequiredFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "private")
	}))
	mux.Handle("GET /admin", h.manager.AdminOnlyFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "admin")
	}))

	h.server = httptest.NewServer(h.manager.Middleware(mux))
	t.Cleanup(h.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return h
}

func (h *sessionHarness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (h *sessionHarness) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	u, _ := url.Parse(h.server.URL)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestSession_AnonymousByDefault(t *testing.T) {
	h := newSessionHarness(t)
	_, body := h.get(t, "/whoami")
	assert.Equal(t, "anonymous", body)
	assert.Nil(t, h.sessionCookie(t), "no cookie until something is stored")
}

func TestSession_FlashesSurviveRedirectOnce(t *testing.T) {
	h := newSessionHarness(t)
	h.get(t, "/flash?msg=hello")
	h.get(t, "/flash?msg=again")

	_, body := h.get(t, "/pop")
	assert.Equal(t, "info:hello;info:again;", body)

	_, body = h.get(t, "/pop")
	assert.Empty(t, body)
}

func TestSession_LoginRotatesIDAndKeepsFlashes(t *testing.T) {
	h := newSessionHarness(t)
	h.get(t, "/flash?msg=before")
	anon := h.sessionCookie(t)
	require.NotNil(t, anon)
	assert.Equal(t, 1, h.store.Len())

	h.get(t, "/login/1")
	authed := h.sessionCookie(t)
	require.NotNil(t, authed)
	assert.NotEqual(t, anon.Value, authed.Value)
	assert.Equal(t, 1, h.store.Len(), "previous session destroyed")

	_, body := h.get(t, "/whoami")
	assert.Equal(t, "alice", body)

	_, body = h.get(t, "/pop")
	assert.Equal(t, "info:before;", body)
}

func TestSession_FixationRejected(t *testing.T) {
	h := newSessionHarness(t)
	h.get(t, "/flash?msg=x")
	planted := h.sessionCookie(t)
	h.get(t, "/login/1")

	// 攻击者持有登录前的会话 Cookie
	req, _ := http.NewRequest(http.MethodGet, h.server.URL+"/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: planted.Value})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "anonymous", string(body))
}

func TestSession_TamperedCookieIsAnonymous(t *testing.T) {
	h := newSessionHarness(t)
	h.get(t, "/login/1")
	c := h.sessionCookie(t)
	require.NotNil(t, c)

	req, _ := http.NewRequest(http.MethodGet, h.server.URL+"/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: c.Value + "x"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "anonymous", string(body))
}

func TestSession_RoleReadFromStore(t *testing.T) {
	h := newSessionHarness(t)
	h.get(t, "/login/1")

	resp, _ := h.get(t, "/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// 角色变更立即生效，不依赖 Cookie 内容
	h.users.setRole(1, model.UserRoleAdmin)
	resp, body := h.get(t, "/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body)
}

func TestSession_Logout(t *testing.T) {
	h := newSessionHarness(t)
	h.get(t, "/login/1")
	h.get(t, "/logout")

	_, body := h.get(t, "/whoami")
	assert.Equal(t, "anonymous", body)
	assert.Zero(t, h.store.Len())
}

func TestGuards(t *testing.T) {
	h := newSessionHarness(t)

	resp, _ := h.get(t, "/private")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	_, body := h.get(t, "/pop")
	assert.Equal(t, "warning:Please log in to access this page.;", body)

	resp, _ = h.get(t, "/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	_, body = h.get(t, "/pop")
	assert.Equal(t, "danger:Admin access required;", body)

	h.get(t, "/login/2")
	resp, body = h.get(t, "/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body)

	resp, body = h.get(t, "/private")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "private"))
}

func TestSession_CookieAttributes(t *testing.T) {
	issuer, _ := NewTokenIssuer("s")
	m := NewManager(cache.NewMemoryStore(), newFakeUsers(model.User{ID: 1}), issuer, ManagerConfig{TTL: time.Hour, Secure: true}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, m.Login(rec, req, &model.User{ID: 1}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

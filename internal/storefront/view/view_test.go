package view

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/model"
	"pearlbox/internal/storefront/form"
	"pearlbox/pkg/logging"
)

func newRenderer(t *testing.T, user *model.User, flashes []cache.Flash) *Renderer {
	t.Helper()
	v, err := New(os.DirFS("../../../web/templates"), func(w http.ResponseWriter, r *http.Request) (*model.User, []cache.Flash) {
		return user, flashes
	}, logging.Discard())
	require.NoError(t, err)
	return v
}

func render(t *testing.T, v *Renderer, status int, page string, data any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	v.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), status, page, data)
	return rec
}

var ring = &model.Product{
	ID:          7,
	Name:        "Pearl Ring",
	Price:       decimal.RequireFromString("9.9"),
	Description: "Freshwater",
	Category:    model.CategoryRings,
	Stock:       3,
	Image:       "images/ring.png",
}

func TestRender_AllPagesParse(t *testing.T) {
	v := newRenderer(t, nil, nil)
	for name := range pageTitles {
		assert.Contains(t, v.pages, name)
	}
}

func TestRender_LayoutShowsUserAndFlashes(t *testing.T) {
	admin := &model.User{ID: 1, Username: "boss", Role: model.UserRoleAdmin}
	v := newRenderer(t, admin, []cache.Flash{{Category: cache.FlashSuccess, Message: "Logged in successfully"}})

	rec := render(t, v, http.StatusOK, PageIndex, IndexData{Products: []*model.Product{ring}})
	body := rec.Body.String()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, `class="flash flash-success">Logged in successfully`)
	assert.Contains(t, body, `href="/admin"`)
	assert.Contains(t, body, "Logout (boss)")
	assert.Contains(t, body, "$9.90")
	assert.Contains(t, body, `src="/static/images/ring.png"`)
}

func TestRender_AnonymousNav(t *testing.T) {
	v := newRenderer(t, nil, nil)
	body := render(t, v, http.StatusOK, PageContact, nil).Body.String()
	assert.Contains(t, body, `href="/login"`)
	assert.NotContains(t, body, `href="/admin"`)
}

func TestRender_Status(t *testing.T) {
	v := newRenderer(t, nil, nil)
	rec := render(t, v, http.StatusUnprocessableEntity, PageRegister, AuthFormData{
		Username: "al",
		Errors:   form.Errors{"username": "Field must be at least 3 characters long."},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Field must be at least 3 characters long.")
	assert.Contains(t, rec.Body.String(), `value="al"`)
}

func TestRender_EscapesContent(t *testing.T) {
	v := newRenderer(t, nil, nil)
	p := *ring
	p.Description = "<script>alert(1)</script>"
	body := render(t, v, http.StatusOK, PageProduct, ProductData{Product: &p}).Body.String()
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRender_Dashboards(t *testing.T) {
	v := newRenderer(t, &model.User{ID: 2, Username: "alice", Role: model.UserRoleCustomer}, nil)
	order := &model.OrderView{
		Order: model.Order{
			ID: 11, UserID: 2, ProductID: 7, Quantity: 2,
			Status:    model.OrderStatusPending,
			OrderDate: time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC),
		},
		Username: "alice", Email: "a@x.com", ProductName: "Pearl Ring",
		ProductPrice: decimal.RequireFromString("9.99"),
	}

	body := render(t, v, http.StatusOK, PageDashboard, DashboardData{Orders: []*model.OrderView{order}}).Body.String()
	assert.Contains(t, body, "$19.98")
	assert.Contains(t, body, "2024-05-06 07:08")

	body = render(t, v, http.StatusOK, PageAdmin, AdminData{Products: []*model.Product{ring}, Orders: []*model.OrderView{order}}).Body.String()
	assert.Contains(t, body, `action="/admin/mark_delivered/11"`)
	assert.Contains(t, body, `action="/admin/delete_product/7"`)
}

func TestRender_ProductForm(t *testing.T) {
	v := newRenderer(t, nil, nil)

	body := render(t, v, http.StatusOK, PageProductForm, ProductFormData{Form: &form.Product{}}).Body.String()
	assert.Contains(t, body, `action="/admin/add_product"`)
	assert.Contains(t, body, "Add Product")

	body = render(t, v, http.StatusOK, PageProductForm, ProductFormData{Product: ring, Form: form.FromModel(ring)}).Body.String()
	assert.Contains(t, body, `action="/admin/edit_product/7"`)
	assert.Contains(t, body, `value="9.90"`)
	assert.Contains(t, body, `<option value="rings" selected>`)
}

func TestRender_UnknownPage(t *testing.T) {
	v := newRenderer(t, nil, nil)
	rec := render(t, v, http.StatusOK, "nope", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "", ImageURL(""))
	assert.Equal(t, "/static/images/a.png", ImageURL("images/a.png"))
}

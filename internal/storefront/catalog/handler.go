// Package catalog 商品浏览、下单与用户订单页面
package catalog

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/objstore"
	"pearlbox/internal/shared/storage"
	"pearlbox/internal/storefront/auth"
	"pearlbox/internal/storefront/order"
	"pearlbox/internal/storefront/view"
	"pearlbox/pkg/logging"
)

// IndexLimit 首页展示的商品数
const IndexLimit = 5

// Store 商品与订单查询
type Store interface {
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*model.OrderView, error)
}

// Renderer 页面渲染
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// Handler 店铺前台处理器
type Handler struct {
	store    Store
	orders   *order.Service
	sessions *auth.Manager
	view     Renderer
	images   objstore.Store
	log      *logging.Logger
}

// NewHandler 创建前台处理器
func NewHandler(store Store, orders *order.Service, sessions *auth.Manager, v Renderer, images objstore.Store, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		store:    store,
		orders:   orders,
		sessions: sessions,
		view:     v,
		images:   images,
		log:      log.Named("catalog"),
	}
}

// RegisterRoutes 注册前台路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /shop", h.Shop)
	mux.HandleFunc("GET /product/{id}", h.Product)
	mux.HandleFunc("POST /product/{id}", h.PlaceOrder)
	mux.Handle("GET /dashboard", h.sessions.LoginRequiredFunc(h.Dashboard))
	mux.HandleFunc("GET /contact", h.Contact)
	mux.HandleFunc("GET /static/images/{name}", h.Image)
}

// Index 首页
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context(), model.ProductFilter{Limit: IndexLimit})
	if err != nil {
		h.internalError(w, r, err, "[catalog] ListProducts failed")
		return
	}
	h.view.Render(w, r, http.StatusOK, view.PageIndex, view.IndexData{Products: products})
}

// Shop 商品列表，支持 ?category= 与 ?sort_by=
func (h *Handler) Shop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ProductFilter{
		Category: model.Category(q.Get("category")),
		Sort:     model.ParseProductSort(q.Get("sort_by")),
	}
	products, err := h.store.ListProducts(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, err, "[catalog] ListProducts failed")
		return
	}
	h.view.Render(w, r, http.StatusOK, view.PageShop, view.ShopData{
		Products: products,
		Category: filter.Category,
		SortBy:   filter.Sort,
	})
}

// Product 商品详情
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	h.view.Render(w, r, http.StatusOK, view.PageProduct, view.ProductData{Product: product})
}

// PlaceOrder 在商品详情页下单
//
// 先确认商品存在（不存在时 404），再检查登录
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	id := product.ID
	back := "/product/" + strconv.FormatInt(id, 10)

	user, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		h.sessions.AddFlash(w, r, cache.FlashWarning, "Please login to place an order")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	quantity, err := order.ParseQuantity(r.PostFormValue("quantity"))
	if err != nil {
		h.sessions.AddFlash(w, r, cache.FlashDanger, "Please enter a valid quantity")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	placement, err := h.orders.Place(r.Context(), user, id, quantity)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.NotFound(w, r)
		return
	case errors.Is(err, storage.ErrInsufficientStock):
		h.sessions.AddFlash(w, r, cache.FlashDanger, "Not enough stock available")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	case errors.Is(err, order.ErrInvalidQuantity):
		h.sessions.AddFlash(w, r, cache.FlashDanger, "Please enter a valid quantity")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	case err != nil:
		h.sessions.AddFlash(w, r, cache.FlashDanger, "Something went wrong. Please try again.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	h.sessions.AddFlash(w, r, cache.FlashSuccess, "Order placed successfully!")
	if placement.NotifyErr != nil {
		h.sessions.AddFlash(w, r, cache.FlashWarning, "Your order was placed, but we could not send all notification emails.")
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Dashboard 当前用户的订单
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	orders, err := h.store.ListOrdersByUser(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, r, err, "[catalog] ListOrdersByUser failed")
		return
	}
	h.view.Render(w, r, http.StatusOK, view.PageDashboard, view.DashboardData{Orders: orders})
}

// Contact 联系页面
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, view.PageContact, nil)
}

// Image 输出商品图片
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	key := objstore.ImageKey(r.PathValue("name"))
	if err := objstore.ValidateKey(key); err != nil {
		http.NotFound(w, r)
		return
	}
	rc, err := h.images.Open(r.Context(), key)
	if err != nil {
		if !errors.Is(err, objstore.ErrNotFound) {
			h.log.WithError(err).Warn("[catalog] Failed to open image", "key", key)
		}
		http.NotFound(w, r)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithError(err).Debug("[catalog] Image transfer interrupted", "key", key)
	}
}

// loadProduct 读取路径中的商品，不存在时输出 404 页面
func (h *Handler) loadProduct(w http.ResponseWriter, r *http.Request) (*model.Product, bool) {
	id, ok := ParseID(r)
	if !ok {
		h.NotFound(w, r)
		return nil, false
	}
	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err, "[catalog] GetProduct failed")
		return nil, false
	}
	if product == nil {
		h.NotFound(w, r)
		return nil, false
	}
	return product, true
}

// NotFound 404 页面
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusNotFound, view.PageNotFound, nil)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.log.WithContext(r.Context()).WithError(err).Error(msg)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// ParseID 解析路径参数 {id}
func ParseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

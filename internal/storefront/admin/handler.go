// Package admin 后台：商品维护与订单发货
package admin

import (
	"context"
	"errors"
	"net/http"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/metrics"
	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/objstore"
	"pearlbox/internal/shared/storage"
	"pearlbox/internal/storefront/auth"
	"pearlbox/internal/storefront/catalog"
	"pearlbox/internal/storefront/form"
	"pearlbox/internal/storefront/order"
	"pearlbox/internal/storefront/view"
	"pearlbox/pkg/logging"
)

// Store 后台需要的存储能力
type Store interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	CountProducts(ctx context.Context) (int, error)
	UpdateProduct(ctx context.Context, id int64, update model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListAllOrders(ctx context.Context) ([]*model.OrderView, error)
}

// Handler 后台处理器，所有路由只对管理员开放
type Handler struct {
	store    Store
	orders   *order.Service
	sessions *auth.Manager
	view     catalog.Renderer
	images   objstore.Store
	metrics  *metrics.Metrics
	log      *logging.Logger
}

// NewHandler 创建后台处理器
func NewHandler(store Store, orders *order.Service, sessions *auth.Manager, v catalog.Renderer, images objstore.Store, m *metrics.Metrics, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		store:    store,
		orders:   orders,
		sessions: sessions,
		view:     v,
		images:   images,
		metrics:  m,
		log:      log.Named("admin"),
	}
}

// RegisterRoutes 注册后台路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	guard := h.sessions.AdminOnlyFunc
	mux.Handle("GET /admin", guard(h.Dashboard))
	mux.Handle("GET /admin/add_product", guard(h.AddProductPage))
	mux.Handle("POST /admin/add_product", guard(h.AddProduct))
	mux.Handle("GET /admin/edit_product/{id}", guard(h.EditProductPage))
	mux.Handle("POST /admin/edit_product/{id}", guard(h.EditProduct))
	mux.Handle("POST /admin/delete_product/{id}", guard(h.DeleteProduct))
	mux.Handle("POST /admin/mark_delivered/{id}", guard(h.MarkDelivered))
}

// Dashboard 全部商品与订单
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context(), model.ProductFilter{})
	if err != nil {
		h.internalError(w, r, err, "[admin] ListProducts failed")
		return
	}
	orders, err := h.store.ListAllOrders(r.Context())
	if err != nil {
		h.internalError(w, r, err, "[admin] ListAllOrders failed")
		return
	}
	h.view.Render(w, r, http.StatusOK, view.PageAdmin, view.AdminData{Products: products, Orders: orders})
}

// AddProductPage 新增商品表单
func (h *Handler) AddProductPage(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, view.PageProductForm, view.ProductFormData{Form: &form.Product{}})
}

// AddProduct 新增商品
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	f, errs := form.ParseProduct(r, true)
	if errs.Any() {
		h.view.Render(w, r, http.StatusUnprocessableEntity, view.PageProductForm, view.ProductFormData{Form: f, Errors: errs})
		return
	}

	key, err := h.saveImage(r.Context(), f.Image)
	if err != nil {
		h.failRedirect(w, r, err, "/admin/add_product", "[admin] Failed to store image")
		return
	}

	product := f.Model(key)
	if err := h.store.CreateProduct(r.Context(), product); err != nil {
		h.discardImage(r.Context(), key)
		h.failRedirect(w, r, err, "/admin/add_product", "[admin] CreateProduct failed")
		return
	}

	h.log.WithProductID(product.ID).Info("[admin] Product added", "name", product.Name)
	h.refreshProductCount(r.Context())
	h.sessions.AddFlash(w, r, cache.FlashSuccess, "Product added successfully")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// EditProductPage 编辑商品表单
func (h *Handler) EditProductPage(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	h.view.Render(w, r, http.StatusOK, view.PageProductForm, view.ProductFormData{
		Product: product,
		Form:    form.FromModel(product),
	})
}

// EditProduct 部分更新商品，留空字段保持原值，上传新图片时替换旧图片
func (h *Handler) EditProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}

	f, errs := form.ParseProduct(r, false)
	if errs.Any() {
		h.view.Render(w, r, http.StatusUnprocessableEntity, view.PageProductForm, view.ProductFormData{
			Product: product,
			Form:    f,
			Errors:  errs,
		})
		return
	}
	back := r.URL.Path

	var key string
	if f.Image != nil {
		var err error
		if key, err = h.saveImage(r.Context(), f.Image); err != nil {
			h.failRedirect(w, r, err, back, "[admin] Failed to store image")
			return
		}
	}

	update := f.Update(key)
	if update.IsEmpty() {
		h.sessions.AddFlash(w, r, cache.FlashInfo, "No changes were made")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	updated, err := h.store.UpdateProduct(r.Context(), product.ID, update)
	if err != nil {
		h.discardImage(r.Context(), key)
		if errors.Is(err, storage.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		h.failRedirect(w, r, err, back, "[admin] UpdateProduct failed")
		return
	}
	if key != "" && product.Image != "" && product.Image != updated.Image {
		h.discardImage(r.Context(), product.Image)
	}

	h.log.WithProductID(product.ID).Info("[admin] Product updated")
	h.sessions.AddFlash(w, r, cache.FlashSuccess, "Product updated successfully")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// DeleteProduct 删除商品，已有订单引用时拒绝
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteProduct(r.Context(), product.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.NotFound(w, r)
		return
	case errors.Is(err, storage.ErrProductInUse):
		h.log.WithProductID(product.ID).Info("[admin] Delete refused: product has orders")
		h.sessions.AddFlash(w, r, cache.FlashDanger, "This product has orders and cannot be deleted")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	case err != nil:
		h.failRedirect(w, r, err, "/admin", "[admin] DeleteProduct failed")
		return
	}

	h.discardImage(r.Context(), product.Image)
	h.log.WithProductID(product.ID).Info("[admin] Product deleted", "name", product.Name)
	h.refreshProductCount(r.Context())
	h.sessions.AddFlash(w, r, cache.FlashSuccess, "Product deleted successfully")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// MarkDelivered 标记订单已发货
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	id, ok := catalog.ParseID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	changed, err := h.orders.MarkDelivered(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.NotFound(w, r)
		return
	case err != nil:
		h.failRedirect(w, r, err, "/admin", "[admin] MarkDelivered failed")
		return
	}

	if changed {
		h.sessions.AddFlash(w, r, cache.FlashSuccess, "Order marked as delivered")
	} else {
		h.sessions.AddFlash(w, r, cache.FlashInfo, "Order was already delivered")
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// saveImage 以随机文件名保存上传图片
func (h *Handler) saveImage(ctx context.Context, upload *form.Upload) (string, error) {
	defer upload.Close()
	key := objstore.NewImageKey(upload.Ext)
	if err := h.images.Save(ctx, key, upload.File, upload.Size, upload.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

// discardImage 尽力删除图片，失败只记录日志
func (h *Handler) discardImage(ctx context.Context, key string) {
	if key == "" || objstore.ValidateKey(key) != nil {
		return
	}
	if err := h.images.Delete(ctx, key); err != nil {
		h.log.WithError(err).Warn("[admin] Failed to delete image", "key", key)
	}
}

func (h *Handler) refreshProductCount(ctx context.Context) {
	if h.metrics == nil {
		return
	}
	n, err := h.store.CountProducts(ctx)
	if err != nil {
		h.log.WithError(err).Warn("[admin] CountProducts failed")
		return
	}
	h.metrics.SetProductsCount(n)
}

func (h *Handler) loadProduct(w http.ResponseWriter, r *http.Request) (*model.Product, bool) {
	id, ok := catalog.ParseID(r)
	if !ok {
		h.NotFound(w, r)
		return nil, false
	}
	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err, "[admin] GetProduct failed")
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

func (h *Handler) failRedirect(w http.ResponseWriter, r *http.Request, err error, back, msg string) {
	h.log.WithContext(r.Context()).WithError(err).Error(msg)
	h.sessions.AddFlash(w, r, cache.FlashDanger, "Something went wrong. Please try again.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.log.WithContext(r.Context()).WithError(err).Error(msg)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

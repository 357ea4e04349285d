// Package view 服务端页面渲染
//
// 每个页面由 base.html 布局加一个页面模板组成，启动时全部解析，
// 渲染时先写入缓冲区，出错不会输出半个页面。
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pearlbox/internal/shared/cache"
	"pearlbox/internal/shared/model"
	"pearlbox/pkg/logging"
)

// 页面名称，对应 templates/<name>.html
const (
	PageIndex       = "index"
	PageShop        = "shop"
	PageProduct     = "product"
	PageLogin       = "login"
	PageRegister    = "register"
	PageDashboard   = "dashboard"
	PageContact     = "contact"
	PageAdmin       = "admin"
	PageProductForm = "product_form"
	PageNotFound    = "not_found"
)

var pageTitles = map[string]string{
	PageIndex:       "Home",
	PageShop:        "Shop",
	PageProduct:     "Product",
	PageLogin:       "Login",
	PageRegister:    "Register",
	PageDashboard:   "My Orders",
	PageContact:     "Contact",
	PageAdmin:       "Admin Dashboard",
	PageProductForm: "Product",
	PageNotFound:    "Not Found",
}

// PageContext 提供布局需要的当前用户与提示消息（读取后清空）
type PageContext func(w http.ResponseWriter, r *http.Request) (*model.User, []cache.Flash)

// Page 传给模板的顶层数据
type Page struct {
	Title      string
	User       *model.User
	Flashes    []cache.Flash
	Categories []model.Category
	Data       any
}

// Renderer 页面渲染器
type Renderer struct {
	pages   map[string]*template.Template
	context PageContext
	log     *logging.Logger
}

// Funcs 模板函数
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"date": func(t time.Time) string {
			return t.Format("2006-01-02 15:04")
		},
		"imageURL": ImageURL,
		"total": func(price decimal.Decimal, qty int) string {
			return price.Mul(decimal.NewFromInt(int64(qty))).StringFixed(2)
		},
	}
}

// ImageURL 图片 key 转为页面地址
func ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return "/static/" + strings.TrimPrefix(key, "/")
}

// New 解析所有页面模板
func New(templates fs.FS, pc PageContext, log *logging.Logger) (*Renderer, error) {
	if log == nil {
		log = logging.Discard()
	}
	r := &Renderer{
		pages:   make(map[string]*template.Template, len(pageTitles)),
		context: pc,
		log:     log.Named("view"),
	}
	for name := range pageTitles {
		t, err := template.New("base.html").Funcs(Funcs()).ParseFS(templates, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render 渲染页面
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, ok := v.pages[name]
	if !ok {
		v.log.Error("[view] Unknown page", "page", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page := Page{
		Title:      pageTitles[name],
		Categories: model.Categories,
		Data:       data,
	}
	if v.context != nil {
		page.User, page.Flashes = v.context(w, r)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base.html", page); err != nil {
		v.log.WithError(err).Error("[view] Failed to render page", "page", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

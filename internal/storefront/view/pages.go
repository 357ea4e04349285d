package view

import (
	"strconv"

	"pearlbox/internal/shared/model"
	"pearlbox/internal/storefront/form"
)

// IndexData 首页
type IndexData struct {
	Products []*model.Product
}

// ShopData 商品列表
type ShopData struct {
	Products []*model.Product
	Category model.Category
	SortBy   model.ProductSort
}

// ProductData 商品详情
type ProductData struct {
	Product *model.Product
}

// AuthFormData 登录与注册页面
type AuthFormData struct {
	Email    string
	Username string
	Errors   form.Errors
}

// DashboardData 用户订单
type DashboardData struct {
	Orders []*model.OrderView
}

// AdminData 后台首页
type AdminData struct {
	Products []*model.Product
	Orders   []*model.OrderView
}

// ProductFormData 新增/编辑商品，Product 为 nil 表示新增
type ProductFormData struct {
	Product *model.Product
	Form    *form.Product
	Errors  form.Errors
}

// Action 表单提交地址
func (d ProductFormData) Action() string {
	if d.Product == nil {
		return "/admin/add_product"
	}
	return "/admin/edit_product/" + strconv.FormatInt(d.Product.ID, 10)
}

// Editing 是否为编辑模式
func (d ProductFormData) Editing() bool {
	return d.Product != nil
}

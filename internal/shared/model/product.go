package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// Category - 商品分类
// ============================================================================

// Category 商品分类
type Category string

const (
	CategoryEarrings  Category = "earrings"
	CategoryNecklaces Category = "necklaces"
	CategoryRings     Category = "rings"
	CategoryBracelets Category = "bracelets"
)

// Categories 按展示顺序排列的全部分类
var Categories = []Category{
	CategoryEarrings,
	CategoryNecklaces,
	CategoryRings,
	CategoryBracelets,
}

// Valid 是否为已知分类
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label 页面展示名称
func (c Category) Label() string {
	switch c {
	case CategoryEarrings:
		return "Earrings"
	case CategoryNecklaces:
		return "Necklaces"
	case CategoryRings:
		return "Rings"
	case CategoryBracelets:
		return "Bracelets"
	default:
		return string(c)
	}
}

// ============================================================================
// Product - 商品
// ============================================================================

// Product 商品
//
// Stock 永远不小于 0：下单时通过条件扣减保证，数据库另有 CHECK 约束
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Description string          `json:"description" db:"description"`
	Category    Category        `json:"category" db:"category"`
	Stock       int             `json:"stock" db:"stock"`
	Image       string          `json:"image" db:"image"` // 图片存储中的相对路径，如 images/xxx.png
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// InStock 是否有货
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// ProductUpdate 商品部分更新，nil 字段保持原值
type ProductUpdate struct {
	Name        *string
	Price       *decimal.Decimal
	Description *string
	Category    *Category
	Stock       *int
	Image       *string
}

// IsEmpty 没有任何字段需要更新
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Price == nil && u.Description == nil &&
		u.Category == nil && u.Stock == nil && u.Image == nil
}

// Apply 将更新应用到商品副本上
func (u ProductUpdate) Apply(p Product) Product {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
	return p
}

// ============================================================================
// ProductFilter - 商品列表查询条件
// ============================================================================

// ProductSort 商品排序方式
type ProductSort string

const (
	SortDefault   ProductSort = ""
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNewest    ProductSort = "new"
)

// ParseProductSort 未知值按默认顺序处理
func ParseProductSort(s string) ProductSort {
	switch ProductSort(s) {
	case SortPriceAsc, SortPriceDesc, SortNewest:
		return ProductSort(s)
	default:
		return SortDefault
	}
}

// ProductFilter 商品列表查询条件
type ProductFilter struct {
	Category Category    // 为空表示全部分类
	Sort     ProductSort // 默认按 id 升序
	Limit    int         // <= 0 表示不限
}

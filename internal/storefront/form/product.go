package form

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pearlbox/internal/shared/model"
)

// MaxUploadSize 单次提交（含图片）的大小上限
const MaxUploadSize = 10 << 20

// AllowedImageExts 允许上传的图片扩展名
var AllowedImageExts = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// Upload 已校验的上传图片
type Upload struct {
	Filename    string
	Ext         string // 小写，不带点
	ContentType string
	Size        int64
	File        multipart.File
}

// Close 释放上传文件
func (u *Upload) Close() error {
	if u == nil || u.File == nil {
		return nil
	}
	return u.File.Close()
}

// productFields 新增商品时所有字段必填
type productFields struct {
	Name        string `form:"name" validate:"required,max=100"`
	Price       string `form:"price" validate:"required"`
	Description string `form:"description" validate:"required"`
	Category    string `form:"category" validate:"required,category"`
	Stock       string `form:"stock" validate:"required"`
}

// productEditFields 编辑商品时留空的字段保持原值
type productEditFields struct {
	Name        string `form:"name" validate:"omitempty,max=100"`
	Price       string `form:"price"`
	Description string `form:"description"`
	Category    string `form:"category" validate:"omitempty,category"`
	Stock       string `form:"stock"`
}

// Product 商品表单
type Product struct {
	Name        string
	Price       string
	Description string
	Category    string
	Stock       string

	price decimal.Decimal
	stock int
	Image *Upload
}

// ParseProduct 读取并校验商品表单
//
// create 为 true 时所有字段与图片必填；否则只校验已填写的字段
func ParseProduct(r *http.Request, create bool) (*Product, Errors) {
	errs := Errors{}
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		errs.Add("form", "Could not read the submitted form.")
		return &Product{}, errs
	}

	f := &Product{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Price:       strings.TrimSpace(r.PostFormValue("price")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Category:    strings.TrimSpace(r.PostFormValue("category")),
		Stock:       strings.TrimSpace(r.PostFormValue("stock")),
	}

	if create {
		errs = check(productFields{f.Name, f.Price, f.Description, f.Category, f.Stock})
	} else {
		errs = check(productEditFields{f.Name, f.Price, f.Description, f.Category, f.Stock})
	}

	if f.Price != "" {
		p, err := decimal.NewFromString(f.Price)
		switch {
		case err != nil:
			errs.Add("price", "Not a valid decimal value.")
		case p.IsNegative():
			errs.Add("price", "Price cannot be negative.")
		default:
			f.price = p.Round(2)
		}
	}
	if f.Stock != "" {
		n, err := strconv.Atoi(f.Stock)
		switch {
		case err != nil:
			errs.Add("stock", "Not a valid integer value.")
		case n < 0:
			errs.Add("stock", "Stock cannot be negative.")
		default:
			f.stock = n
		}
	}

	upload, err := readImage(r)
	switch {
	case errors.Is(err, errImagesOnly):
		errs.Add("image", "Images only!")
	case err != nil:
		errs.Add("image", "Could not read the uploaded file.")
	case upload == nil && create:
		errs.Add("image", "This field is required.")
	default:
		f.Image = upload
	}

	if errs.Any() && f.Image != nil {
		f.Image.Close()
		f.Image = nil
	}
	return f, errs
}

var errImagesOnly = errors.New("image type not allowed")

// readImage 读取可选的图片字段，扩展名与文件内容都必须是允许的图片类型
func readImage(r *http.Request) (*Upload, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header.Filename == "" || header.Size == 0 {
		file.Close()
		return nil, nil
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	contentType, ok := AllowedImageExts[ext]
	if !ok {
		file.Close()
		return nil, errImagesOnly
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, err
	}
	if sniffed := http.DetectContentType(head[:n]); !strings.HasPrefix(sniffed, "image/") {
		file.Close()
		return nil, errImagesOnly
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}

	return &Upload{
		Filename:    filepath.Base(header.Filename),
		Ext:         ext,
		ContentType: contentType,
		Size:        header.Size,
		File:        file,
	}, nil
}

// Model 新增商品时转换为模型，image 为已保存的图片 key
func (f *Product) Model(image string) *model.Product {
	return &model.Product{
		Name:        f.Name,
		Price:       f.price,
		Description: f.Description,
		Category:    model.Category(f.Category),
		Stock:       f.stock,
		Image:       image,
	}
}

// Update 编辑商品时转换为部分更新，image 为空表示不替换图片
func (f *Product) Update(image string) model.ProductUpdate {
	var u model.ProductUpdate
	if f.Name != "" {
		u.Name = &f.Name
	}
	if f.Price != "" {
		price := f.price
		u.Price = &price
	}
	if f.Description != "" {
		u.Description = &f.Description
	}
	if f.Category != "" {
		c := model.Category(f.Category)
		u.Category = &c
	}
	if f.Stock != "" {
		stock := f.stock
		u.Stock = &stock
	}
	if image != "" {
		u.Image = &image
	}
	return u
}

// FromModel 编辑页面回填当前商品
func FromModel(p *model.Product) *Product {
	return &Product{
		Name:        p.Name,
		Price:       p.Price.StringFixed(2),
		Description: p.Description,
		Category:    string(p.Category),
		Stock:       strconv.Itoa(p.Stock),
		price:       p.Price,
		stock:       p.Stock,
	}
}

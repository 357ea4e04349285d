//go:build dev
// +build dev

// Package web 页面模板与静态资源（开发模式）
//
// 开发模式下直接读取磁盘上的 web/ 目录，修改模板后重启即可生效。
// 使用方式：go run -tags dev ./cmd/storefront（在仓库根目录执行）
package web

import (
	"io/fs"
	"os"
)

// Dir 开发模式下资源所在目录
var Dir = "web"

// TemplatesFS 返回磁盘上的模板目录
func TemplatesFS() (fs.FS, error) {
	return os.DirFS(Dir + "/templates"), nil
}

// StaticFS 返回磁盘上的静态资源目录
func StaticFS() (fs.FS, error) {
	return os.DirFS(Dir + "/static"), nil
}

// IsEmbedded 返回 false 表示当前为开发模式（资源未嵌入）
func IsEmbedded() bool {
	return false
}

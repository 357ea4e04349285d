//go:build !dev
// +build !dev

// Package web 页面模板与静态资源的嵌入支持（生产模式）
//
// templates/ 与 static/ 编译进二进制，部署时只需要一个可执行文件。
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// TemplatesFS 返回页面模板文件系统，以 templates/ 为根目录
func TemplatesFS() (fs.FS, error) {
	return fs.Sub(files, "templates")
}

// StaticFS 返回静态资源文件系统，以 static/ 为根目录
func StaticFS() (fs.FS, error) {
	return fs.Sub(files, "static")
}

// IsEmbedded 返回 true 表示当前为生产模式（资源已嵌入）
func IsEmbedded() bool {
	return true
}

// Package objstore 商品图片对象存储
//
// 两种实现：本地目录（默认）与 MinIO（配置 MINIO_ENDPOINT 时启用）。
// key 统一为 images/<uuid>.<ext>，页面通过 /static/images/<name> 访问。
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ImagePrefix 商品图片 key 前缀
const ImagePrefix = "images/"

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey key 不合法（路径穿越等）
var ErrInvalidKey = errors.New("invalid object key")

// Store 对象存储接口
type Store interface {
	// Save 写入对象，size 未知时传 -1
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open 读取对象，调用方负责关闭；不存在时返回 ErrNotFound
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除对象，不存在时不报错
	Delete(ctx context.Context, key string) error
}

// keyRe 只允许 images/ 下单层文件名
var keyRe = regexp.MustCompile(`^images/[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey 检查 key 是否为合法的图片路径
func ValidateKey(key string) error {
	if !keyRe.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// NewImageKey 为上传图片生成随机 key，ext 不带点，如 "png"
func NewImageKey(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return ImagePrefix + uuid.NewString() + "." + ext
}

// ImageKey 将 URL 中的文件名还原为 key
func ImageKey(name string) string {
	return ImagePrefix + path.Base(name)
}

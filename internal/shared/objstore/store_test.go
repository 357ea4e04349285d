package objstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearlbox/internal/config"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"images/abc.png", false},
		{"images/3f2c-11.jpeg", false},
		{"images/../secret", true},
		{"images/..png", true},
		{"../etc/passwd", true},
		{"images/sub/dir.png", true},
		{"images/", true},
		{"other/a.png", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidKey, tt.key)
		} else {
			assert.NoError(t, err, tt.key)
		}
	}
}

func TestNewImageKey(t *testing.T) {
	k1 := NewImageKey("PNG")
	k2 := NewImageKey(".jpg")
	assert.True(t, strings.HasPrefix(k1, "images/"))
	assert.True(t, strings.HasSuffix(k1, ".png"))
	assert.True(t, strings.HasSuffix(k2, ".jpg"))
	assert.NotEqual(t, k1, NewImageKey("png"))
	assert.NoError(t, ValidateKey(k1))
	assert.Equal(t, "images/a.png", ImageKey("a.png"))
	assert.Equal(t, "images/passwd", ImageKey("../../passwd"))
}

func TestLocalStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static", "images")
	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	key := NewImageKey("png")
	require.NoError(t, s.Save(ctx, key, bytes.NewReader([]byte("fake-png")), 8, "image/png"))

	onDisk, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(key, ImagePrefix)))
	require.NoError(t, err)
	assert.Equal(t, "fake-png", string(onDisk))

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "fake-png", string(data))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, key), "deleting twice is fine")

	assert.ErrorIs(t, s.Save(ctx, "images/../x", strings.NewReader(""), 0, ""), ErrInvalidKey)
	_, err = s.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no leftover temp files")
}

func TestNewLocalStore_RequiresDir(t *testing.T) {
	_, err := NewLocalStore("")
	assert.Error(t, err)
}

func TestNewMinIOStore_Validation(t *testing.T) {
	_, err := NewMinIOStore(config.MinIOConfig{}, nil)
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewMinIOStore(config.MinIOConfig{Endpoint: "localhost:9000"}, nil)
	assert.ErrorContains(t, err, "access_key")

	s, err := NewMinIOStore(config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "pearlbox", s.bucket)
	assert.NotNil(t, s.log, "nil logger falls back to discard")
}

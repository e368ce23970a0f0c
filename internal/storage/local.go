// Package storage keeps uploaded images on local disk under the media root.
package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize 解码后的图片大小上限
const MaxImageSize = 10 << 20

var ErrInvalidImage = errors.New("invalid image data")

// LocalStore 把 base64 data URL 形式的图片落盘
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Root() string {
	return s.root
}

// Save 解析 "data:image/png;base64,..." 并写入 root/dir，返回相对路径
func (s *LocalStore) Save(dataURL, dir string) (string, error) {
	data, ext, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	rel := dir + "/" + uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(rel)), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}

// Delete 删除相对路径指向的文件，文件不存在不算错误
func (s *LocalStore) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL 返回对外可访问的地址，空路径返回空串
func (s *LocalStore) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.baseURL + "/media/" + rel
}

func decodeDataURL(dataURL string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, "", ErrInvalidImage
	}
	subtype := strings.TrimSuffix(strings.TrimPrefix(header, "data:image/"), ";base64")
	ext, ok := imageExt[subtype]
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported type image/%s", ErrInvalidImage, subtype)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize {
		return nil, "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageSize)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, "", ErrInvalidImage
	}
	return data, ext, nil
}

var imageExt = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"jpg":  ".jpg",
	"gif":  ".gif",
	"webp": ".webp",
}

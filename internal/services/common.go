package services

import (
	"errors"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/internal/storage"
)

// Page 单次请求的分页参数，由 handler 解析后传入
type Page struct {
	Limit  int
	Offset int
}

// ImageStore 图片存储，默认实现是 storage.LocalStore
type ImageStore interface {
	Save(dataURL, dir string) (string, error)
	Delete(rel string) error
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// saveImage 把 data URL 存盘，格式错误转成对应字段的校验错误
func saveImage(images ImageStore, dataURL, dir, field string) (string, error) {
	rel, err := images.Save(dataURL, dir)
	if errors.Is(err, storage.ErrInvalidImage) {
		return "", apperr.ValidationField(field, err.Error())
	}
	if err != nil {
		return "", apperr.Internal("save image", err)
	}
	return rel, nil
}

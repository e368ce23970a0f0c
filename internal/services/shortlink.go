package services

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/internal/logger"
	"foodgram/internal/models"
)

const (
	shortCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	shortCodeLength   = 6
	shortCodeAttempts = 3
)

// ShortLinkService 为菜谱生成短链接码
type ShortLinkService struct {
	db  *gorm.DB
	log *logger.Logger
	gen func() (string, error)
}

func NewShortLinkService(db *gorm.DB, log *logger.Logger) *ShortLinkService {
	return &ShortLinkService{
		db:  db,
		log: log,
		gen: func() (string, error) {
			return gonanoid.Generate(shortCodeAlphabet, shortCodeLength)
		},
	}
}

// CodeFor 返回菜谱的短链接码，首次调用时生成并保存
func (s *ShortLinkService) CodeFor(ctx context.Context, recipeID uint) (string, error) {
	db := s.db.WithContext(ctx)

	var recipe models.Recipe
	if err := db.Select("id", "code").First(&recipe, recipeID).Error; err != nil {
		if isNotFound(err) {
			return "", apperr.NotFound("recipe not found")
		}
		return "", err
	}
	if recipe.Code != nil {
		return *recipe.Code, nil
	}

	for attempt := 1; attempt <= shortCodeAttempts; attempt++ {
		code, err := s.gen()
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}

		// 只在 code 仍为空时写入，并发请求以先写入者为准
		res := db.Model(&models.Recipe{}).
			Where("id = ? AND code IS NULL", recipeID).
			UpdateColumn("code", code)
		if res.Error != nil {
			if isDuplicate(res.Error) {
				s.log.Warn("Short code collision", "recipe_id", recipeID, "attempt", attempt)
				continue
			}
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			if err := db.Select("id", "code").First(&recipe, recipeID).Error; err != nil {
				return "", err
			}
			if recipe.Code != nil {
				return *recipe.Code, nil
			}
			continue
		}
		return code, nil
	}
	return "", apperr.Internal("could not allocate short code", nil)
}

// Resolve 根据短链接码查找菜谱 ID
func (s *ShortLinkService) Resolve(ctx context.Context, code string) (uint, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Select("id").Where("code = ?", code).First(&recipe).Error
	if err != nil {
		if isNotFound(err) {
			return 0, apperr.NotFound("short link not found")
		}
		return 0, err
	}
	return recipe.ID, nil
}

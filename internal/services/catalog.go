package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/internal/models"
	"foodgram/internal/utils"
)

const (
	cacheKeyTags        = "catalog:tags"
	cacheKeyIngredients = "catalog:ingredients:"
)

// CatalogService 标签与食材的只读查询，结果走进程内缓存
type CatalogService struct {
	db    *gorm.DB
	cache *utils.Cache
}

func NewCatalogService(db *gorm.DB, cache *utils.Cache) *CatalogService {
	return &CatalogService{db: db, cache: cache}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	if cached, ok := s.cache.Get(cacheKeyTags).([]models.Tag); ok {
		return cached, nil
	}
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyTags, tags)
	return tags, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("tag not found")
		}
		return nil, err
	}
	return &tag, nil
}

// SearchIngredients 按名称前缀匹配，不区分大小写；空前缀返回全部
func (s *CatalogService) SearchIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	key := cacheKeyIngredients + prefix
	if cached, ok := s.cache.Get(key).([]models.Ingredient); ok {
		return cached, nil
	}

	q := s.db.WithContext(ctx).Order("name ASC, measurement_unit ASC")
	if prefix != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	var items []models.Ingredient
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	s.cache.Set(key, items)
	return items, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("ingredient not found")
		}
		return nil, err
	}
	return &ing, nil
}

// Invalidate 导入或新增目录数据后清空缓存
func (s *CatalogService) Invalidate() {
	s.cache.Delete(cacheKeyTags)
	s.cache.DeletePrefix(cacheKeyIngredients)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

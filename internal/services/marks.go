package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/internal/models"
)

// MarkService 处理用户对菜谱的标记：收藏和购物车共用同一套逻辑
// 每个 (user, recipe) 只有 ABSENT / PRESENT 两种状态，由唯一索引保证
type MarkService struct {
	db      *gorm.DB
	model   any
	newMark func(userID, recipeID uint) any
	label   string
}

func NewFavoriteService(db *gorm.DB) *MarkService {
	return &MarkService{
		db:    db,
		model: &models.Favorite{},
		newMark: func(userID, recipeID uint) any {
			return &models.Favorite{UserID: userID, RecipeID: recipeID}
		},
		label: "favorites",
	}
}

func NewCartService(db *gorm.DB) *MarkService {
	return &MarkService{
		db:    db,
		model: &models.ShoppingCart{},
		newMark: func(userID, recipeID uint) any {
			return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
		},
		label: "shopping cart",
	}
}

// Add ABSENT -> PRESENT；已存在时返回 Conflict，菜谱不存在返回 NotFound
func (s *MarkService) Add(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	db := s.db.WithContext(ctx)

	var recipe models.Recipe
	if err := db.First(&recipe, recipeID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("recipe not found")
		}
		return nil, err
	}

	// 重复由唯一索引判定，不先查后插
	if err := db.Create(s.newMark(userID, recipeID)).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict(fmt.Sprintf("recipe is already in %s", s.label))
		}
		return nil, fmt.Errorf("add to %s: %w", s.label, err)
	}
	return &recipe, nil
}

// Remove PRESENT -> ABSENT；本来就不存在时返回 NotFound
func (s *MarkService) Remove(ctx context.Context, userID, recipeID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(s.model)
	if res.Error != nil {
		return fmt.Errorf("remove from %s: %w", s.label, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(fmt.Sprintf("recipe is not in %s", s.label))
	}
	return nil
}

// Contains 返回 recipeIDs 中被该用户标记过的集合
func (s *MarkService) Contains(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if userID == 0 || len(recipeIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := s.db.WithContext(ctx).Model(s.model).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

package models

import (
	"time"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 240

	MinIngredientAmount = 1
	MaxIngredientAmount = 32767
)

type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      User               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Name        string             `gorm:"size:256;not null" json:"name"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null" json:"cooking_time"` // 分钟
	Image       string             `json:"image"`
	Code        *string            `gorm:"size:10;uniqueIndex" json:"-"` // 短链接，首次请求时生成
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE;" json:"tags"`
	Ingredients []RecipeIngredient `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"ingredients"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// RecipeIngredient 菜谱中的一行食材
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint       `gorm:"not null;index;uniqueIndex:idx_recipe_ingredient" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"ingredient"`
	Amount       int        `gorm:"not null" json:"amount"`
}

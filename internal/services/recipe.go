package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foodgram/internal/apperr"
	"foodgram/internal/logger"
	"foodgram/internal/models"
	"foodgram/internal/validation"
)

// IngredientLine 请求中的一行食材
type IngredientLine struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"min=1,max=32767"` // models.MaxIngredientAmount
}

// RecipeInput 创建菜谱的完整输入
type RecipeInput struct {
	Name        string           `json:"name" validate:"required,max=256"`
	Text        string           `json:"text" validate:"required"`
	CookingTime int              `json:"cooking_time" validate:"min=1,max=240"`
	Tags        []uint           `json:"tags"`
	Ingredients []IngredientLine `json:"ingredients" validate:"dive"`
	Image       string           `json:"image"` // base64 data URL，可选
}

// RecipePatch 部分更新，nil 表示不修改
type RecipePatch struct {
	Name        *string          `json:"name" validate:"omitnil,min=1,max=256"`
	Text        *string          `json:"text" validate:"omitnil,min=1"`
	CookingTime *int             `json:"cooking_time" validate:"omitnil,min=1,max=240"`
	Tags        []uint           `json:"tags"`
	Ingredients []IngredientLine `json:"ingredients" validate:"dive"`
	Image       *string          `json:"image"`
}

// RecipeFilter 列表过滤条件，零值表示不过滤
type RecipeFilter struct {
	AuthorID         uint
	TagSlugs         []string
	ViewerID         uint
	IsFavorited      *bool
	IsInShoppingCart *bool
}

type RecipeService struct {
	db        *gorm.DB
	validator *validation.Validator
	images    ImageStore
	log       *logger.Logger
}

func NewRecipeService(db *gorm.DB, v *validation.Validator, images ImageStore, log *logger.Logger) *RecipeService {
	return &RecipeService{db: db, validator: v, images: images, log: log}
}

// Create 在一个事务中写入菜谱、标签关联和食材行
func (s *RecipeService) Create(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if err := checkTagIDs(in.Tags); err != nil {
		return nil, err
	}
	if err := checkLines(in.Ingredients); err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(in.Name),
		Text:        in.Text,
		CookingTime: in.CookingTime,
	}

	var savedImage string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := loadTags(tx, in.Tags)
		if err != nil {
			return err
		}
		if err := checkIngredientsExist(tx, in.Ingredients); err != nil {
			return err
		}

		if in.Image != "" {
			if savedImage, err = saveImage(s.images, in.Image, "recipes", "image"); err != nil {
				return err
			}
			recipe.Image = savedImage
		}

		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Append(tags); err != nil {
			return err
		}
		return tx.Create(buildLines(recipe.ID, in.Ingredients)).Error
	})
	if err != nil {
		s.discardImage(savedImage)
		return nil, err
	}

	s.log.Info("Recipe created", "recipe_id", recipe.ID, "author_id", authorID)
	return s.Get(ctx, recipe.ID)
}

// Update 仅作者可改；提供了食材或标签时整体替换
func (s *RecipeService) Update(ctx context.Context, recipeID, userID uint, p RecipePatch) (*models.Recipe, error) {
	var savedImage, oldImage string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先确认菜谱存在且属于当前用户，再校验请求内容
		recipe, err := loadOwned(tx, recipeID, userID)
		if err != nil {
			return err
		}
		if err := s.checkPatch(p); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if p.Name != nil {
			updates["name"] = strings.TrimSpace(*p.Name)
		}
		if p.Text != nil {
			updates["text"] = *p.Text
		}
		if p.CookingTime != nil {
			updates["cooking_time"] = *p.CookingTime
		}
		if p.Image != nil {
			oldImage = recipe.Image
			newImage := ""
			if *p.Image != "" {
				if savedImage, err = saveImage(s.images, *p.Image, "recipes", "image"); err != nil {
					return err
				}
				newImage = savedImage
			}
			updates["image"] = newImage
		}

		if p.Tags != nil {
			tags, err := loadTags(tx, p.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}

		if p.Ingredients != nil {
			if err := checkIngredientsExist(tx, p.Ingredients); err != nil {
				return err
			}
			// 先删后插，旧的食材行不会残留
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return err
			}
			if err := tx.Create(buildLines(recipe.ID, p.Ingredients)).Error; err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(recipe).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.discardImage(savedImage)
		return nil, err
	}
	if p.Image != nil {
		s.discardImage(oldImage)
	}
	return s.Get(ctx, recipeID)
}

func (s *RecipeService) checkPatch(p RecipePatch) error {
	if err := s.validator.Validate(p); err != nil {
		return err
	}
	if p.Tags != nil {
		if err := checkTagIDs(p.Tags); err != nil {
			return err
		}
	}
	if p.Ingredients != nil {
		return checkLines(p.Ingredients)
	}
	return nil
}

// Delete 仅作者可删，同时清理食材行、标签关联、收藏和购物车
func (s *RecipeService) Delete(ctx context.Context, recipeID, userID uint) error {
	var image string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := loadOwned(tx, recipeID, userID)
		if err != nil {
			return err
		}
		image = recipe.Image

		for _, m := range []any{&models.RecipeIngredient{}, &models.Favorite{}, &models.ShoppingCart{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(recipe).Error
	})
	if err != nil {
		return err
	}
	s.discardImage(image)
	s.log.Info("Recipe deleted", "recipe_id", recipeID, "author_id", userID)
	return nil
}

// Get 加载菜谱及作者、标签、食材
func (s *RecipeService) Get(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.withDetails(s.db.WithContext(ctx)).First(&recipe, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("recipe not found")
		}
		return nil, err
	}
	return &recipe, nil
}

// List 按创建时间倒序分页查询
func (s *RecipeService) List(ctx context.Context, f RecipeFilter, page Page) ([]models.Recipe, int64, error) {
	db := s.db.WithContext(ctx)
	scoped := func() *gorm.DB {
		q := db.Model(&models.Recipe{})
		if f.AuthorID != 0 {
			q = q.Where("recipes.author_id = ?", f.AuthorID)
		}
		if len(f.TagSlugs) > 0 {
			q = q.Where("recipes.id IN (?)", db.Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", f.TagSlugs))
		}
		q = markFilter(db, q, &models.Favorite{}, f.ViewerID, f.IsFavorited)
		q = markFilter(db, q, &models.ShoppingCart{}, f.ViewerID, f.IsInShoppingCart)
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	err := s.withDetails(scoped()).
		Order("recipes.created_at DESC, recipes.id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// markFilter 只对已登录用户生效；匿名用户请求 is_favorited=1 得到空结果
func markFilter(db, q *gorm.DB, model any, viewerID uint, want *bool) *gorm.DB {
	if want == nil {
		return q
	}
	if viewerID == 0 {
		if *want {
			return q.Where("1 = 0")
		}
		return q
	}
	sub := db.Model(model).Select("recipe_id").Where("user_id = ?", viewerID)
	if *want {
		return q.Where("recipes.id IN (?)", sub)
	}
	return q.Where("recipes.id NOT IN (?)", sub)
}

func (s *RecipeService) withDetails(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id ASC") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id ASC") }).
		Preload("Ingredients.Ingredient")
}

func (s *RecipeService) discardImage(rel string) {
	if rel == "" {
		return
	}
	if err := s.images.Delete(rel); err != nil {
		s.log.Warn("Failed to delete image", "path", rel, "error", err)
	}
}

func loadOwned(tx *gorm.DB, recipeID, userID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := tx.First(&recipe, recipeID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("recipe not found")
		}
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, apperr.Forbidden("only the author can modify this recipe")
	}
	return &recipe, nil
}

func checkTagIDs(ids []uint) error {
	if len(ids) == 0 {
		return apperr.ValidationField("tags", "at least one tag is required")
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperr.ValidationField("tags", fmt.Sprintf("duplicate tag %d", id))
		}
		seen[id] = true
	}
	return nil
}

func checkLines(lines []IngredientLine) error {
	if len(lines) == 0 {
		return apperr.ValidationField("ingredients", "at least one ingredient is required")
	}
	seen := make(map[uint]bool, len(lines))
	for _, l := range lines {
		if l.Amount <= 0 {
			return apperr.ValidationField("ingredients", fmt.Sprintf("amount for ingredient %d must be positive", l.ID))
		}
		if seen[l.ID] {
			return apperr.ValidationField("ingredients", fmt.Sprintf("duplicate ingredient %d", l.ID))
		}
		seen[l.ID] = true
	}
	return nil
}

func loadTags(tx *gorm.DB, ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		found := make(map[uint]bool, len(tags))
		for _, t := range tags {
			found[t.ID] = true
		}
		return nil, apperr.ValidationField("tags", "unknown tags: "+joinMissing(ids, found))
	}
	return tags, nil
}

func checkIngredientsExist(tx *gorm.DB, lines []IngredientLine) error {
	ids := make([]uint, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	var found []uint
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) != len(ids) {
		set := make(map[uint]bool, len(found))
		for _, id := range found {
			set[id] = true
		}
		return apperr.ValidationField("ingredients", "unknown ingredients: "+joinMissing(ids, set))
	}
	return nil
}

func joinMissing(ids []uint, found map[uint]bool) string {
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	sort.Strings(missing)
	return strings.Join(missing, ", ")
}

func buildLines(recipeID uint, in []IngredientLine) []models.RecipeIngredient {
	lines := make([]models.RecipeIngredient, len(in))
	for i, l := range in {
		lines[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: l.ID, Amount: l.Amount}
	}
	return lines
}

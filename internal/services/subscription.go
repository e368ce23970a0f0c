package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/internal/models"
)

// AuthorFeed 关注列表中的一位作者及其最近的菜谱
type AuthorFeed struct {
	Author       models.User
	Recipes      []models.Recipe
	RecipesCount int64
}

type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// Subscribe subscriber 关注 author
// 自己关注自己总是 InvalidOperation，与当前状态无关
func (s *SubscriptionService) Subscribe(ctx context.Context, subscriberID, authorID uint) (*models.User, error) {
	if subscriberID == authorID {
		return nil, apperr.InvalidOperation("cannot subscribe to yourself")
	}
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}

	sub := models.Subscription{SubscriberID: subscriberID, AuthorID: authorID}
	if err := db.Create(&sub).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("already subscribed to this user")
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &author, nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, subscriberID, authorID uint) error {
	if subscriberID == authorID {
		return apperr.InvalidOperation("cannot unsubscribe from yourself")
	}
	res := s.db.WithContext(ctx).
		Where("subscriber_id = ? AND author_id = ?", subscriberID, authorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("unsubscribe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("not subscribed to this user")
	}
	return nil
}

// SubscribedTo 返回 authorIDs 中已被 subscriberID 关注的集合
func (s *SubscriptionService) SubscribedTo(ctx context.Context, subscriberID uint, authorIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if subscriberID == 0 || len(authorIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ? AND author_id IN ?", subscriberID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// ListAuthors 分页列出关注的作者，每位附带最多 recipesLimit 个最新菜谱
// recipesLimit <= 0 表示不限制
func (s *SubscriptionService) ListAuthors(ctx context.Context, subscriberID uint, page Page, recipesLimit int) ([]AuthorFeed, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Subscription{}).Where("subscriber_id = ?", subscriberID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	err := db.Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.subscriber_id = ?", subscriberID).
		Order("subscriptions.id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}
	if len(authors) == 0 {
		return []AuthorFeed{}, total, nil
	}

	feeds, err := buildFeeds(db, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return feeds, total, nil
}

// Feed 单个作者的关注条目，用于关注成功后的响应
func (s *SubscriptionService) Feed(ctx context.Context, authorID uint, recipesLimit int) (*AuthorFeed, error) {
	db := s.db.WithContext(ctx)
	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	feeds, err := buildFeeds(db, []models.User{author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &feeds[0], nil
}

func buildFeeds(db *gorm.DB, authors []models.User, recipesLimit int) ([]AuthorFeed, error) {
	authorIDs := make([]uint, len(authors))
	for i, a := range authors {
		authorIDs[i] = a.ID
	}

	// 批量统计菜谱数量
	type countRow struct {
		AuthorID uint
		Count    int64
	}
	var rows []countRow
	err := db.Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS count").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.AuthorID] = r.Count
	}

	feeds := make([]AuthorFeed, len(authors))
	for i, a := range authors {
		q := db.Where("author_id = ?", a.ID).Order("created_at DESC, id DESC")
		if recipesLimit > 0 {
			q = q.Limit(recipesLimit)
		}
		var recipes []models.Recipe
		if err := q.Find(&recipes).Error; err != nil {
			return nil, err
		}
		feeds[i] = AuthorFeed{Author: a, Recipes: recipes, RecipesCount: counts[a.ID]}
	}
	return feeds, nil
}

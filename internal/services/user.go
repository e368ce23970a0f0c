package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/internal/models"
	"foodgram/internal/validation"
)

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username,ne=me"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type SetPasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

type UserService struct {
	db        *gorm.DB
	validator *validation.Validator
	images    ImageStore
}

func NewUserService(db *gorm.DB, v *validation.Validator, images ImageStore) *UserService {
	return &UserService{db: db, validator: v, images: images}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	// 先查一次，给出具体字段的错误信息；并发注册仍由唯一索引兜底
	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperr.ValidationField("email", "a user with this email already exists")
	}
	if err := db.Model(&models.User{}).Where("username = ?", in.Username).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperr.ValidationField("username", "a user with this username already exists")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
	}
	if err := db.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate 校验邮箱和密码，失败时不区分是哪一项错误
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if err != nil || !CheckPasswordHash(password, user.Password) {
		return nil, apperr.Validation("unable to log in with provided credentials")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context, page Page) ([]models.User, int64, error) {
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := db.Order("id ASC").Limit(page.Limit).Offset(page.Offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserService) SetPassword(ctx context.Context, userID uint, in SetPasswordInput) error {
	if err := s.validator.Validate(in); err != nil {
		return err
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPasswordHash(in.CurrentPassword, user.Password) {
		return apperr.ValidationField("current_password", "is incorrect")
	}
	hash, err := HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(user).Update("password", hash).Error
}

// SetAvatar 保存新头像并删除旧文件，返回新的相对路径
func (s *UserService) SetAvatar(ctx context.Context, userID uint, dataURL string) (string, error) {
	if dataURL == "" {
		return "", apperr.ValidationField("avatar", "is required")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	old := user.Avatar
	rel, err := saveImage(s.images, dataURL, "users", "avatar")
	if err != nil {
		return "", err
	}
	// Update 会回写 user.Avatar，旧路径需提前保存
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", rel).Error; err != nil {
		_ = s.images.Delete(rel)
		return "", err
	}
	_ = s.images.Delete(old)
	return rel, nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	old := user.Avatar
	if old == "" {
		return apperr.NotFound("avatar is not set")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", "").Error; err != nil {
		return err
	}
	if err := s.images.Delete(old); err != nil {
		return apperr.Internal("delete avatar file", err)
	}
	return nil
}

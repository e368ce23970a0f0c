package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"foodgram/internal/apperr"
	"foodgram/internal/models"
	"foodgram/internal/services"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
)

// AuthRequired 未登录直接返回 401，需放在 LoadUser 之后
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			e := apperr.Unauthorized("authentication credentials were not provided")
			c.AbortWithStatusJSON(e.HTTPStatus(), e)
			return
		}
		c.Next()
	}
}

// LoadUser retrieves user from session and sets to context
func LoadUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if id, ok := session.Get(SessionUserKey).(uint); ok && id > 0 {
			if user, err := users.Get(c.Request.Context(), id); err == nil {
				c.Set(CheckUserKey, user)
			}
		}
		c.Next()
	}
}

// CurrentUser 返回当前登录用户，匿名时为 nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentUserID 匿名时返回 0
func CurrentUserID(c *gin.Context) uint {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}

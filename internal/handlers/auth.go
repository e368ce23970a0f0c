package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"foodgram/internal/apperr"
	"foodgram/internal/logger"
	"foodgram/internal/middleware"
	"foodgram/internal/services"
)

type AuthHandler struct {
	users   *services.UserService
	present *Presenter
	log     *logger.Logger
}

func NewAuthHandler(users *services.UserService, present *Presenter, log *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, present: present, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login 邮箱 + 密码登录，成功后把 user_id 写入 session
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(c, h.log, apperr.Validation("email and password are required"))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, h.log, apperr.Internal("save session", err))
		return
	}

	out, err := h.present.User(c.Request.Context(), user.ID, user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, h.log, apperr.Internal("save session", err))
		return
	}
	c.Status(http.StatusNoContent)
}

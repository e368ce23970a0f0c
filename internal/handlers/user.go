package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodgram/internal/logger"
	"foodgram/internal/middleware"
	"foodgram/internal/services"
	"foodgram/internal/utils"
)

type UserHandler struct {
	users   *services.UserService
	subs    *services.SubscriptionService
	present *Presenter
	pager   Pager
	log     *logger.Logger
}

func NewUserHandler(users *services.UserService, subs *services.SubscriptionService, present *Presenter, pager Pager, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, subs: subs, present: present, pager: pager, log: log}
}

func (h *UserHandler) List(c *gin.Context) {
	page, num, err := h.pager.Parse(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	users, total, err := h.users.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out, err := h.present.Users(c.Request.Context(), middleware.CurrentUserID(c), users)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.pager.Response(c, page, num, total, out))
}

// Register 注册成功返回 201，不自动登录
func (h *UserHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}

func (h *UserHandler) Detail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out, err := h.present.User(c.Request.Context(), middleware.CurrentUserID(c), user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	out, err := h.present.User(c.Request.Context(), user.ID, user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var in services.SetPasswordInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), middleware.CurrentUserID(c), in); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type avatarRequest struct {
	Avatar string `json:"avatar"`
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req avatarRequest
	if !bindJSON(c, &req) {
		return
	}
	rel, err := h.users.SetAvatar(c.Request.Context(), middleware.CurrentUserID(c), req.Avatar)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": h.present.mediaURL(rel)})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	if err := h.users.DeleteAvatar(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipesLimit 解析 recipes_limit，缺省或非法时不限制
func recipesLimit(c *gin.Context) int {
	return max(utils.StringToInt(c.Query("recipes_limit")), 0)
}

// Subscriptions 当前用户关注的作者列表
func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, num, err := h.pager.Parse(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	feeds, total, err := h.subs.ListAuthors(c.Request.Context(), middleware.CurrentUserID(c), page, recipesLimit(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.pager.Response(c, page, num, total, h.present.AuthorFeeds(feeds)))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	viewer := middleware.CurrentUserID(c)
	if _, err := h.subs.Subscribe(ctx, viewer, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	feed, err := h.subs.Feed(ctx, id, recipesLimit(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, h.present.AuthorFeed(feed))
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.subs.Unsubscribe(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

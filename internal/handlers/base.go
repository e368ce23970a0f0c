package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"foodgram/internal/apperr"
	"foodgram/internal/logger"
	"foodgram/internal/middleware"
	"foodgram/internal/services"
	"foodgram/internal/utils"
)

const maxPageLimit = 100

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// respondError 把服务层错误映射为 JSON 响应，未知错误统一 500
func respondError(c *gin.Context, log *logger.Logger, err error) {
	if e, ok := apperr.From(err); ok && e.Code != apperr.CodeInternal {
		c.AbortWithStatusJSON(e.HTTPStatus(), e)
		return
	}
	_ = c.Error(err)
	if log != nil {
		log.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, apperr.ErrInternal)
}

// bindJSON 解析请求体，失败时直接写 400
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		e := apperr.Validation("invalid request body").WithCause(err)
		c.AbortWithStatusJSON(e.HTTPStatus(), e)
		return false
	}
	return true
}

// pathID 解析 :name 路径参数，非法 ID 按不存在处理
func pathID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		e := apperr.NotFound("not found")
		c.AbortWithStatusJSON(e.HTTPStatus(), e)
	}
	return id, ok
}

// Pager 解析 page/limit 查询参数并生成分页响应
type Pager struct {
	siteURL  string
	pageSize int
}

func NewPager(siteURL string, pageSize int) Pager {
	if pageSize <= 0 {
		pageSize = 6
	}
	return Pager{siteURL: siteURL, pageSize: pageSize}
}

// Parse 返回分页参数和 1 起始的页码
func (p Pager) Parse(c *gin.Context) (services.Page, int, error) {
	limit := p.pageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return services.Page{}, 0, apperr.ValidationField("limit", "must be a positive integer")
		}
		limit = min(n, maxPageLimit)
	}
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return services.Page{}, 0, apperr.NotFound("invalid page")
		}
		page = n
	}
	return services.Page{Limit: limit, Offset: (page - 1) * limit}, page, nil
}

// Response {count, next, previous, results}
func (p Pager) Response(c *gin.Context, page services.Page, pageNum int, count int64, results any) gin.H {
	var next, prev any
	if int64(page.Offset+page.Limit) < count {
		next = p.pageURL(c, pageNum+1)
	}
	if pageNum > 1 {
		prev = p.pageURL(c, pageNum-1)
	}
	return gin.H{"count": count, "next": next, "previous": prev, "results": results}
}

func (p Pager) pageURL(c *gin.Context, page int) string {
	q := c.Request.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return p.siteURL + u.String()
}

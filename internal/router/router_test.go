package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodgram/internal/config"
	"foodgram/internal/logger"
	"foodgram/internal/router"
	"foodgram/internal/services"
	"foodgram/internal/storage"
	"foodgram/internal/testutil"
	"foodgram/internal/utils"
	"foodgram/internal/validation"
)

const siteURL = "http://testserver"

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gdb := testutil.NewDB(t)
	cfg := &config.Config{
		SiteURL:       siteURL,
		PageSize:      6,
		SessionSecret: "test-secret",
		MediaRoot:     t.TempDir(),
		LogMode:       "dev",
	}
	cache, err := utils.NewCache(64, time.Minute)
	require.NoError(t, err)
	log := logger.Nop()
	v := validation.New()
	media := storage.NewLocalStore(cfg.MediaRoot, cfg.SiteURL)

	r := router.New(router.Deps{
		Config:        cfg,
		Log:           log,
		Registry:      prometheus.NewRegistry(),
		Media:         media,
		Users:         services.NewUserService(gdb, v, media),
		Subscriptions: services.NewSubscriptionService(gdb),
		Catalog:       services.NewCatalogService(gdb, cache),
		Recipes:       services.NewRecipeService(gdb, v, media, log),
		Favorites:     services.NewFavoriteService(gdb),
		Cart:          services.NewCartService(gdb),
		Shopping:      services.NewShoppingService(gdb),
		Links:         services.NewShortLinkService(gdb, log),
	})
	return r, gdb
}

// client 保存 session cookie 的简易浏览器
type client struct {
	t       *testing.T
	r       *gin.Engine
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, r *gin.Engine) *client {
	return &client{t: t, r: r, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
		} else {
			c.cookies[ck.Name] = ck
		}
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signUp 注册并登录，返回已登录的 client 和用户 ID
func signUp(t *testing.T, r *gin.Engine, username string) (*client, uint) {
	t.Helper()
	c := newClient(t, r)
	w := c.do(http.MethodPost, "/api/users/", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "First",
		"last_name":  "Last",
		"password":   "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))

	w = c.do(http.MethodPost, "/api/auth/token/login/", map[string]string{
		"email":    username + "@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return c, id
}

func TestAuthFlow(t *testing.T) {
	r, _ := newServer(t)
	anon := newClient(t, r)

	w := anon.do(http.MethodGet, "/api/users/me/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, w)["code"])

	c, id := signUp(t, r, "anna")
	w = c.do(http.MethodGet, "/api/users/me/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, float64(id), me["id"])
	assert.Equal(t, "anna@example.com", me["email"])
	assert.Equal(t, false, me["is_subscribed"])
	assert.Nil(t, me["avatar"])

	w = anon.do(http.MethodPost, "/api/auth/token/login/", map[string]string{"email": "anna@example.com", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/api/users/set_password/", map[string]string{"current_password": "s3cret-pass", "new_password": "brand-new-pass"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = c.do(http.MethodPost, "/api/auth/token/logout/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = c.do(http.MethodGet, "/api/users/me/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodPost, "/api/auth/token/login/", map[string]string{"email": "anna@example.com", "password": "brand-new-pass"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newServer(t)
	signUp(t, r, "anna")
	c := newClient(t, r)

	w := c.do(http.MethodPost, "/api/users/", map[string]string{
		"email":      "anna@example.com",
		"username":   "other",
		"first_name": "A",
		"last_name":  "B",
		"password":   "s3cret-pass",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VALIDATION", body["code"])
	assert.Contains(t, body["errors"], "email")

	w = c.do(http.MethodPost, "/api/users/", map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvatar(t *testing.T) {
	r, _ := newServer(t)
	c, _ := signUp(t, r, "anna")

	w := c.do(http.MethodDelete, "/api/users/me/avatar/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodPut, "/api/users/me/avatar/", map[string]string{"avatar": "data:image/png;base64,iVBORw0KGgo="})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	avatar := decode(t, w)["avatar"].(string)
	assert.True(t, strings.HasPrefix(avatar, siteURL+"/media/users/"))

	path := strings.TrimPrefix(avatar, siteURL)
	w = c.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodDelete, "/api/users/me/avatar/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	r, gdb := newServer(t)
	tag := testutil.CreateTag(t, gdb, "Breakfast", "breakfast")
	flour := testutil.CreateIngredient(t, gdb, "Flour", "g")
	egg := testutil.CreateIngredient(t, gdb, "Egg", "pcs")

	author, _ := signUp(t, r, "chef")
	other, _ := signUp(t, r, "guest")
	anon := newClient(t, r)

	payload := map[string]any{
		"name":         "Pancakes",
		"text":         "Mix **well**",
		"cooking_time": 20,
		"tags":         []uint{tag.ID},
		"ingredients": []map[string]any{
			{"id": flour.ID, "amount": 200},
			{"id": egg.ID, "amount": 2},
		},
		"image": "data:image/png;base64,iVBORw0KGgo=",
	}

	w := anon.do(http.MethodPost, "/api/recipes/", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = author.do(http.MethodPost, "/api/recipes/", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := uint(created["id"].(float64))
	assert.Equal(t, "chef", created["author"].(map[string]any)["username"])
	assert.Len(t, created["ingredients"], 2)
	assert.Len(t, created["tags"], 1)
	assert.Contains(t, created["text_html"], "<strong>well</strong>")
	assert.True(t, strings.HasPrefix(created["image"].(string), siteURL+"/media/recipes/"))
	assert.Equal(t, false, created["is_favorited"])

	recipePath := fmt.Sprintf("/api/recipes/%d/", id)

	w = other.do(http.MethodPatch, recipePath, map[string]any{"name": "Stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = other.do(http.MethodPatch, recipePath, map[string]any{"cooking_time": 0, "ingredients": []any{}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = author.do(http.MethodPatch, "/api/recipes/9999/", map[string]any{"cooking_time": 0})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = author.do(http.MethodPost, "/api/recipes/", map[string]any{
		"name": "Huge", "text": "x", "cooking_time": 5, "tags": []uint{tag.ID},
		"ingredients": []map[string]any{{"id": flour.ID, "amount": 32768}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = author.do(http.MethodPatch, recipePath, map[string]any{
		"name":        "Thin pancakes",
		"ingredients": []map[string]any{{"id": flour.ID, "amount": 250}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "Thin pancakes", updated["name"])
	assert.Len(t, updated["ingredients"], 1)

	w = anon.do(http.MethodGet, "/api/recipes/?tags=breakfast", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	// 收藏与购物车
	w = other.do(http.MethodPost, recipePath+"favorite/", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	short := decode(t, w)
	assert.Equal(t, "Thin pancakes", short["name"])
	assert.Equal(t, float64(20), short["cooking_time"])

	w = other.do(http.MethodPost, recipePath+"favorite/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w)["code"])

	w = other.do(http.MethodGet, recipePath, nil)
	assert.Equal(t, true, decode(t, w)["is_favorited"])

	w = other.do(http.MethodGet, "/api/recipes/?is_favorited=1", nil)
	assert.Equal(t, float64(1), decode(t, w)["count"])
	w = anon.do(http.MethodGet, "/api/recipes/?is_favorited=1", nil)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = other.do(http.MethodDelete, recipePath+"favorite/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = other.do(http.MethodDelete, recipePath+"favorite/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = other.do(http.MethodPost, recipePath+"shopping_cart/", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = other.do(http.MethodGet, "/api/recipes/download_shopping_cart/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "shopping_cart.csv")
	assert.Contains(t, w.Body.String(), "Flour,250,g")

	w = other.do(http.MethodGet, "/api/recipes/download_shopping_cart/?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Flour", items[0]["name"])
	assert.Equal(t, float64(250), items[0]["amount"])

	w = other.do(http.MethodGet, "/api/recipes/download_shopping_cart/?format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Flour")

	w = anon.do(http.MethodGet, "/api/recipes/download_shopping_cart/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 短链接
	w = anon.do(http.MethodGet, recipePath+"get-link/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	link := decode(t, w)["short-link"].(string)
	require.True(t, strings.HasPrefix(link, siteURL+"/s/"))

	w = anon.do(http.MethodGet, strings.TrimPrefix(link, siteURL), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, recipePath, w.Header().Get("Location"))

	// 删除
	w = other.do(http.MethodDelete, recipePath, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = author.do(http.MethodDelete, recipePath, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = anon.do(http.MethodGet, recipePath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = other.do(http.MethodGet, "/api/recipes/download_shopping_cart/?format=json", nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSubscriptions(t *testing.T) {
	r, gdb := newServer(t)
	reader, readerID := signUp(t, r, "reader")
	_, authorID := signUp(t, r, "author")

	salt := testutil.CreateIngredient(t, gdb, "Salt", "g")
	author := testutil.CreateUser(t, gdb, "author2")
	for i := 0; i < 3; i++ {
		testutil.CreateRecipe(t, gdb, author, fmt.Sprintf("Dish %d", i), nil, testutil.Line{Ingredient: salt, Amount: 1})
	}

	w := reader.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", readerID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_OPERATION", decode(t, w)["code"])

	w = reader.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/?recipes_limit=2", author.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	feed := decode(t, w)
	assert.Equal(t, true, feed["is_subscribed"])
	assert.Equal(t, float64(3), feed["recipes_count"])
	assert.Len(t, feed["recipes"], 2)

	w = reader.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", author.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = reader.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", authorID), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = reader.do(http.MethodGet, "/api/users/subscriptions/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Equal(t, float64(2), list["count"])
	first := list["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "author", first["username"])

	w = reader.do(http.MethodGet, fmt.Sprintf("/api/users/%d/", author.ID), nil)
	assert.Equal(t, true, decode(t, w)["is_subscribed"])

	w = reader.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe/", author.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = reader.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe/", author.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = reader.do(http.MethodPost, "/api/users/9999/subscribe/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPagination(t *testing.T) {
	r, gdb := newServer(t)
	for i := 0; i < 7; i++ {
		testutil.CreateUser(t, gdb, fmt.Sprintf("user%d", i))
	}
	c := newClient(t, r)

	w := c.do(http.MethodGet, "/api/users/?limit=3&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(7), body["count"])
	assert.Len(t, body["results"], 3)
	assert.Equal(t, siteURL+"/api/users/?limit=3&page=3", body["next"])
	assert.Equal(t, siteURL+"/api/users/?limit=3", body["previous"])

	w = c.do(http.MethodGet, "/api/users/?limit=3&page=3", nil)
	body = decode(t, w)
	assert.Len(t, body["results"], 1)
	assert.Nil(t, body["next"])

	w = c.do(http.MethodGet, "/api/users/", nil)
	body = decode(t, w)
	assert.Len(t, body["results"], 6)
	assert.Nil(t, body["previous"])

	w = c.do(http.MethodGet, "/api/users/?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	r, gdb := newServer(t)
	tag := testutil.CreateTag(t, gdb, "Dinner", "dinner")
	testutil.CreateIngredient(t, gdb, "Salt", "g")
	testutil.CreateIngredient(t, gdb, "Sugar", "g")
	c := newClient(t, r)

	w := c.do(http.MethodGet, "/api/tags/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`[{"id":%d,"name":"Dinner","slug":"dinner"}]`, tag.ID), w.Body.String())

	w = c.do(http.MethodGet, "/api/tags/abc/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodGet, "/api/ingredients/?name=sa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Salt", items[0]["name"])
}

func TestMetricsAndRequestID(t *testing.T) {
	r, _ := newServer(t)
	c := newClient(t, r)

	w := c.do(http.MethodGet, "/api/tags/", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `foodgram_http_requests_total{method="GET",route="/api/tags/",status="200"} 1`)
}

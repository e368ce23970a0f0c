package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"foodgram/internal/apperr"
	"foodgram/internal/logger"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/services"
	"foodgram/internal/utils"
)

type RecipeHandler struct {
	recipes   *services.RecipeService
	favorites *services.MarkService
	cart      *services.MarkService
	shopping  *services.ShoppingService
	links     *services.ShortLinkService
	present   *Presenter
	pager     Pager
	siteURL   string
	log       *logger.Logger
}

type RecipeHandlerDeps struct {
	Recipes   *services.RecipeService
	Favorites *services.MarkService
	Cart      *services.MarkService
	Shopping  *services.ShoppingService
	Links     *services.ShortLinkService
	Present   *Presenter
	Pager     Pager
	SiteURL   string
	Log       *logger.Logger
}

func NewRecipeHandler(d RecipeHandlerDeps) *RecipeHandler {
	return &RecipeHandler{
		recipes:   d.Recipes,
		favorites: d.Favorites,
		cart:      d.Cart,
		shopping:  d.Shopping,
		links:     d.Links,
		present:   d.Present,
		pager:     d.Pager,
		siteURL:   strings.TrimRight(d.SiteURL, "/"),
		log:       d.Log,
	}
}

// parseFilter 解析列表过滤参数；tags 可重复，命中任一即可
func parseFilter(c *gin.Context) (services.RecipeFilter, error) {
	f := services.RecipeFilter{
		TagSlugs: c.QueryArray("tags"),
		ViewerID: middleware.CurrentUserID(c),
	}
	if raw := c.Query("author"); raw != "" {
		id, ok := utils.ParseID(raw)
		if !ok {
			return f, apperr.ValidationField("author", "must be a user id")
		}
		f.AuthorID = id
	}
	for name, dst := range map[string]**bool{
		"is_favorited":        &f.IsFavorited,
		"is_in_shopping_cart": &f.IsInShoppingCart,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, ok := utils.ParseFlag(raw)
		if !ok {
			return f, apperr.ValidationField(name, "must be 0 or 1")
		}
		*dst = &v
	}
	return f, nil
}

func (h *RecipeHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	page, num, err := h.pager.Parse(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	recipes, total, err := h.recipes.List(c.Request.Context(), filter, page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out, err := h.present.Recipes(c.Request.Context(), filter.ViewerID, recipes)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.pager.Response(c, page, num, total, out))
}

func (h *RecipeHandler) Detail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var in services.RecipeInput
	if !bindJSON(c, &in) {
		return
	}
	recipe, err := h.recipes.Create(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.RecipePatch
	if !bindJSON(c, &in) {
		return
	}
	recipe, err := h.recipes.Update(c.Request.Context(), id, middleware.CurrentUserID(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	out, err := h.present.Recipe(c.Request.Context(), middleware.CurrentUserID(c), recipe)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(status, out)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context)    { h.addMark(c, h.favorites) }
func (h *RecipeHandler) RemoveFavorite(c *gin.Context) { h.removeMark(c, h.favorites) }
func (h *RecipeHandler) AddToCart(c *gin.Context)      { h.addMark(c, h.cart) }
func (h *RecipeHandler) RemoveFromCart(c *gin.Context) { h.removeMark(c, h.cart) }

func (h *RecipeHandler) addMark(c *gin.Context, marks *services.MarkService) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := marks.Add(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, h.present.ShortRecipe(recipe))
}

func (h *RecipeHandler) removeMark(c *gin.Context, marks *services.MarkService) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := marks.Remove(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadCart 购物清单：默认 CSV 附件，?format=json 或 ?format=html
func (h *RecipeHandler) DownloadCart(c *gin.Context) {
	items, err := h.shopping.BuildShoppingList(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	switch c.DefaultQuery("format", "csv") {
	case "json":
		c.JSON(http.StatusOK, items)
	case "html":
		Render(c, http.StatusOK, "shopping/list.html", gin.H{
			"Items":       items,
			"GeneratedAt": time.Now(),
		})
	case "csv":
		var buf bytes.Buffer
		if err := services.WriteShoppingCSV(&buf, items); err != nil {
			respondError(c, h.log, apperr.Internal("write shopping list", err))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="shopping_cart.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	default:
		respondError(c, h.log, apperr.ValidationField("format", "must be one of csv, json, html"))
	}
}

// GetLink 返回短链接，首次请求时生成短码
func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	code, err := h.links.CodeFor(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"short-link": h.siteURL + "/s/" + code})
}

// ShortRedirect /s/:code -> 菜谱详情
func (h *RecipeHandler) ShortRedirect(c *gin.Context) {
	id, err := h.links.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/api/recipes/%d/", id))
}

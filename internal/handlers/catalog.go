package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodgram/internal/logger"
	"foodgram/internal/services"
)

// CatalogHandler 标签与食材，只读且不分页
type CatalogHandler struct {
	catalog *services.CatalogService
	log     *logger.Logger
}

func NewCatalogHandler(catalog *services.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log}
}

func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.catalog.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]gin.H, len(tags))
	for i, t := range tags {
		out[i] = tagJSON(t)
	}
	c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tag, err := h.catalog.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tagJSON(*tag))
}

// ListIngredients ?name= 按前缀搜索
func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	items, err := h.catalog.SearchIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]gin.H, len(items))
	for i, it := range items {
		out[i] = ingredientJSON(it)
	}
	c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.catalog.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ingredientJSON(*item))
}

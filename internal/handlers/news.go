package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/newsforum/backend/internal/apierror"
	"github.com/emilythestrangee/newsforum/backend/internal/store"
)

// NewsHandler serves the read-only news and category tables.
type NewsHandler struct {
	news store.NewsStore
}

func NewNewsHandler(news store.NewsStore) *NewsHandler {
	return &NewsHandler{news: news}
}

// GetNews lists news newest first, optionally filtered by ?category=<id>
func (h *NewsHandler) GetNews(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apierror.Validation(c, "category must be a numeric id")
			return
		}
		categoryID = &id
	}

	news, err := h.news.ListNews(c.Request.Context(), categoryID)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, news)
}

// GetNewsItem returns one news row
func (h *NewsHandler) GetNewsItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apierror.NotFound(c, "Not found")
		return
	}

	item, err := h.news.GetNews(c.Request.Context(), id)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *NewsHandler) GetCategories(c *gin.Context) {
	categories, err := h.news.ListCategories(c.Request.Context())
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, categories)
}

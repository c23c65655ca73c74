package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/scraper"
)

type SearchHandler struct {
	log     *logger.Logger
	scraper *scraper.Service
}

func NewSearchHandler(baseLog *logger.Logger, scraperService *scraper.Service) *SearchHandler {
	return &SearchHandler{
		log:     baseLog.With("handler", "SearchHandler"),
		scraper: scraperService,
	}
}

// ExternalSearch fans the query out to the external catalogs and the internal
// one. Partial source failures are invisible here; they only shrink results.
func (h *SearchHandler) ExternalSearch(c *gin.Context) {
	results, err := h.scraper.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		if errors.Is(err, scraper.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("External search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpark-availability-backend/internal/feed"
)

// PostRefresh handles POST /api/refresh: one on-demand reconciliation cycle.
// The response carries the cycle summary rather than a bare success flag so
// callers can see partial-failure detail.
func (h *Handler) PostRefresh(c *gin.Context) {
	summary, err := h.refresher.RefreshOnce(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("on-demand refresh failed")

		var fetchErr *feed.FetchError
		var validationErr *feed.ValidationError
		var persistErr *feed.PersistenceError
		switch {
		case errors.As(err, &fetchErr), errors.As(err, &validationErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "summary": summary})
		case errors.As(err, &persistErr):
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

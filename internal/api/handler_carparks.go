package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultNearbyLimit = 10
	maxNearbyLimit     = 100
)

// GetCarParks handles GET /api/carparks.
func (h *Handler) GetCarParks(c *gin.Context) {
	carparks, err := h.store.FindAll(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve carparks"})
		return
	}
	c.JSON(http.StatusOK, carparks)
}

// GetNearbyCarParks handles GET /api/carparks/nearby?lat=..&lng=..&limit=..
// The caller's position is an explicit query parameter, never server state.
func (h *Handler) GetNearbyCarParks(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}

	limit := defaultNearbyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxNearbyLimit {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	carparks, err := h.store.FindNearby(c.Request.Context(), lat, lng, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve nearby carparks"})
		return
	}
	c.JSON(http.StatusOK, carparks)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpark-availability-backend/internal/feed"
)

// availabilityFailure is the JSON shape of one agency failure.
type availabilityFailure struct {
	Agency feed.Agency `json:"agency"`
	Error  string      `json:"error"`
}

// availabilityResponse carries the merged live feed plus the list of
// agencies that contributed nothing this pass.
type availabilityResponse struct {
	Records  []feed.StandardizedCarPark `json:"records"`
	Failures []availabilityFailure      `json:"failures"`
}

// GetAvailability handles GET /api/availability: the live multi-agency feed.
func (h *Handler) GetAvailability(c *gin.Context) {
	result := h.aggregator.Availability(c.Request.Context())

	resp := availabilityResponse{
		Records:  result.Records,
		Failures: make([]availabilityFailure, 0, len(result.Failures)),
	}
	if resp.Records == nil {
		resp.Records = []feed.StandardizedCarPark{}
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, availabilityFailure{Agency: f.Agency, Error: f.Message()})
	}

	c.JSON(http.StatusOK, resp)
}

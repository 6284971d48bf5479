package stats

import (
	"github.com/gin-gonic/gin"

	"github.com/context-subtitles/relay/pkg/response"
)

// Handler exposes the session statistics over HTTP.
type Handler struct {
	agg *Aggregator
}

// NewHandler creates a stats handler.
func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg}
}

// Get handles GET /api/stats.
func (h *Handler) Get(c *gin.Context) {
	response.OK(c, h.agg.Snapshot())
}

// Top handles GET /api/top: the 3 most-tapped terms, count descending.
func (h *Handler) Top(c *gin.Context) {
	response.OK(c, gin.H{"top": h.agg.TopTaps(3)})
}

// Reset handles POST /api/stats/reset.
func (h *Handler) Reset(c *gin.Context) {
	h.agg.Reset()
	response.OK(c, gin.H{"message": "statistics reset"})
}

package definitions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/context-subtitles/relay/pkg/response"
)

// LookupRecorder receives every accepted definition request for session
// statistics.
type LookupRecorder interface {
	RecordLookup(term, contextSnippet string)
}

// DefineRequest is the body for POST /define.
type DefineRequest struct {
	Term    string `json:"term"`
	Context string `json:"context"`
	Lang    string `json:"lang"`
}

// Handler handles definition HTTP requests.
type Handler struct {
	svc    *Service
	stats  LookupRecorder
	logger *zap.Logger
}

// NewHandler creates a definitions handler. stats may be nil.
func NewHandler(svc *Service, stats LookupRecorder, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, stats: stats, logger: logger}
}

// Define handles POST /define. The sentinel "skip" definition is a 200; the
// front end renders it as "no definition", not an error.
func (h *Handler) Define(c *gin.Context) {
	var req DefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	res, err := h.svc.Define(c.Request.Context(), req.Term, req.Context, req.Lang)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyTerm):
			response.BadRequest(c, ErrEmptyTerm.Error())
		case errors.Is(err, ErrQueueFull):
			h.logger.Warn("definition queue saturated", zap.String("term", req.Term))
			response.ServiceUnavailable(c, "definition queue is full, try again")
		default:
			// Upstream cause stays in the logs; the client sees one message.
			h.logger.Error("definition lookup failed", zap.String("term", req.Term), zap.Error(err))
			response.BadGateway(c, "definition unavailable")
		}
		return
	}

	if h.stats != nil {
		h.stats.RecordLookup(req.Term, req.Context)
	}
	response.OK(c, res)
}

package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The caption front end consumes flat JSON bodies, so these helpers write the
// payload as-is rather than wrapping it in an envelope. Errors are always
// `{"error": "..."}`.

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err})
}

// BadGateway sends 502 with error message. Used when the upstream definition
// provider fails; the original cause is logged server-side, not exposed.
func BadGateway(c *gin.Context, err string) {
	c.JSON(http.StatusBadGateway, gin.H{"error": err})
}

// ServiceUnavailable sends 503 with error message.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": err})
}

// Internal sends 500 with error message.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err})
}

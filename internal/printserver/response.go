package printserver

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// apiResponse is the envelope every endpoint replies with.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *meta       `json:"meta"`
}

type meta struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

func newMeta(c *gin.Context) *meta {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &meta{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(200, apiResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    newMeta(c),
	})
}

func respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, apiResponse{
		Success: false,
		Message: message,
		Meta:    newMeta(c),
	})
}

package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

// userIDHeader carries the caller identity established by the gateway.
const userIDHeader = "X-User-ID"

func requireActor(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(userIDHeader))
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
			Kind:    "unauthenticated",
			Message: userIDHeader + " header required",
		})
		return "", false
	}
	return id, true
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}

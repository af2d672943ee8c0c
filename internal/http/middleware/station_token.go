package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
)

// StationToken guards the ingestion endpoint. Stations send the shared
// token as the raw Authorization header value.
func StationToken(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(authorizationHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			unauthorized(c, "invalid station token")
			return
		}
		c.Next()
	}
}

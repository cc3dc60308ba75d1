package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxUploadBytes caps the size of a request body
const MaxUploadBytes = 512 << 20

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.MaxMultipartMemory = 32 << 20
	s.router.Use(limitBody(MaxUploadBytes))
}

// limitBody rejects request bodies larger than n bytes
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

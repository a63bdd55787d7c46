package pgstub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ginZapMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", rawQuery),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.GetHeader("X-Request-Id")),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}

// corsMiddleware answers preflight requests for browser clients served from
// another origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Accept, Accept-Profile, Authorization, Content-Profile, Content-Type, Prefer, X-Request-Id, apikey")
		h.Set("Access-Control-Expose-Headers", "Content-Range, Location")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// profileMiddleware enforces the Accept-Profile / Content-Profile headers
// against the served schema.
func (s *Server) profileMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := "Content-Profile"
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			header = "Accept-Profile"
		}
		if got := c.GetHeader(header); got != "" && got != s.schema {
			s.respondError(c, newError(http.StatusNotAcceptable, CodeSchema, "Invalid schema: "+got).
				withHint("Only the following schemas are exposed: "+s.schema))
			return
		}
		c.Next()
	}
}

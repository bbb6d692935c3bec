package middleware

import (
	"time"

	"plateau/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger is a Gin middleware for logging HTTP requests and responses.
func Logger() gin.HandlerFunc {
	log := logging.Component("http")
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		var evt *zerolog.Event
		switch {
		case statusCode >= 500:
			evt = log.Error()
		case statusCode >= 400:
			evt = log.Warn()
		default:
			evt = log.Info()
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			evt = evt.Str("errors", errs)
		}
		evt.Str("method", c.Request.Method).
			Str("uri", c.Request.RequestURI).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// Cors allows the admin console and the PWA to call the API from any origin.
func Cors() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

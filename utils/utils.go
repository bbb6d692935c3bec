package utils

import (
	"net/http"
	"strconv"
	"time"

	"plateau/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SendJSONError sends a standardized JSON error response and logs the internal error.
// For 5xx errors, it sends a generic public message while logging the actual internalError.
// For 4xx errors, the publicMsg is shown to the client, and internalError (if provided) is logged.
func SendJSONError(c *gin.Context, statusCode int, publicMsg string, internalError error, details ...string) {
	errorDetails := ""
	if len(details) > 0 {
		errorDetails = details[0]
	}

	if statusCode >= http.StatusInternalServerError && (publicMsg == "" || (internalError != nil && publicMsg == internalError.Error())) {
		publicMsg = "An unexpected error occurred. Please try again later."
	}

	evt := logging.Info()
	if internalError != nil {
		evt = logging.Error().Err(internalError)
	}
	evt.Int("status_code", statusCode).
		Str("public_message", publicMsg).
		Str("details", errorDetails).
		Str("path", c.Request.URL.Path).
		Msg("handler error response")

	response := gin.H{
		"code":    statusCode,
		"message": publicMsg,
		"data":    nil,
	}
	if errorDetails != "" {
		response["details"] = errorDetails
	}
	c.AbortWithStatusJSON(statusCode, response)
}

// SendJSONSuccess writes the standard success envelope.
func SendJSONSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    data,
	})
}

// GenerateID returns a random UUID string.
func GenerateID() string {
	return uuid.NewString()
}

// FormatTime formats t for log lines and CLI output.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}

// ParseIntDefault parses s as an int, returning def when s is empty or invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

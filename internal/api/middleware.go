package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/logging"
)

// RequestLogger 用 zerolog 记录每个请求；4xx 记 warn，5xx 记 error
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		ev.Str("method", c.Request.Method).
			Str(logging.FieldPath, c.Request.URL.Path).
			Int(logging.FieldStatus, status).
			Dur(logging.FieldLatency, time.Since(start)).
			Str(logging.FieldMode, c.Writer.Header().Get(HeaderDataMode)).
			Msg("request")
	}
}

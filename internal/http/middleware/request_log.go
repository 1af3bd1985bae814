package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursechat-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

// RequestLogger writes one access line per request. 5xx log at error, 4xx at warn,
// probes at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes_in", c.Request.ContentLength,
			"bytes_out", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if route != "" {
			fields = append(fields, "route", route)
		}
		if courseID := c.Param("id"); courseID != "" {
			fields = append(fields, "course_id", courseID)
		} else if courseID := c.Param("courseId"); courseID != "" {
			fields = append(fields, "course_id", courseID)
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if subject, ok := c.Get(subjectKey); ok {
			fields = append(fields, "subject", subject)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case probeRoutes[route]:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

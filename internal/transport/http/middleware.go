package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "adaptive-quiz-service/internal/errors"
	"adaptive-quiz-service/internal/logging"
	"adaptive-quiz-service/internal/telemetry"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags the request context with a request id and logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		ctx := logging.WithFields(c.Request.Context(), logrus.Fields{"request_id": id})
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		entry := logging.FromContext(ctx).WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		default:
			entry.Debug("request served")
		}
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		telemetry.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

type errorResponse struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// writeError renders err with the status of its code. Causes of internal and
// upstream failures are logged, never sent to clients.
func writeError(c *gin.Context, err error) {
	e := apperrors.Convert(err)
	status := e.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).WithError(err).Error("request error")
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: e.Code, Message: e.Message})
}

func bindError(c *gin.Context, err error) {
	writeError(c, apperrors.InvalidArgument("invalid request: %v", err))
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registration-api/internal/service"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

const unmatchedRoute = "unmatched"

// Health checks and scrapes are not counted as API traffic.
var unobservedRoutes = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Metrics counts API requests by route pattern and by the error code they ended with.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, skip := unobservedRoutes[route]; skip {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, status, outcomeCode(c, status), time.Since(start))
	}
}

// outcomeCode is the application code of the last handler error, OK on success.
func outcomeCode(c *gin.Context, status int) string {
	if last := c.Errors.Last(); last != nil {
		return appErrors.FromError(last.Err).Code
	}
	if status >= http.StatusBadRequest {
		return "HTTP_" + strconv.Itoa(status)
	}
	return "OK"
}

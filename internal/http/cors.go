package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// adminCORSHeaders are the response headers a browser publisher needs to read: the issue location
// from a 303, the back-off hint from a 429 and the request id for support.
var adminCORSHeaders = []string{"Location", "Retry-After", "X-Request-Id"}

// createCORSMiddleware returns nil unless enabled and at least one origin is configured.
func createCORSMiddleware(enabled bool, allowOrigins string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOrigins)
	if len(origins) == 0 {
		logger.Warn("CORS_ENABLED is set but CORS_ALLOW_ORIGINS has no origin, skipping CORS")
		return nil
	}
	logger.Info("CORS enabled for the admin API", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    adminCORSHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func parseOrigins(s string) []string {
	var origins []string
	for origin := range strings.SplitSeq(s, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

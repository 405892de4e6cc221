package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/httputil"
	"github.com/allisson/newsletter/internal/user/usecase"
)

// BasicAuthRealm is advertised in the WWW-Authenticate challenge.
const BasicAuthRealm = "publish"

// BasicAuthMiddleware authenticates admin users with HTTP Basic credentials (email:password).
//
// On success the user is stored in the request context and can be read with GetUser.
// Missing or invalid credentials return 401 with a Basic challenge. Storage failures
// during the lookup return 500.
func BasicAuthMiddleware(userUseCase usecase.UseCase, logger *slog.Logger) gin.HandlerFunc {
	challenge := `Basic realm="` + BasicAuthRealm + `"`

	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			logger.Debug("authentication failed: missing basic credentials")
			c.Header("WWW-Authenticate", challenge)
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		user, err := userUseCase.Authenticate(c.Request.Context(), email, password)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrUnauthorized) {
				c.Header("WWW-Authenticate", challenge)
			}
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))

		logger.Debug("authentication successful", slog.String("user_id", user.ID.String()))
		c.Next()
	}
}

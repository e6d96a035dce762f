package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/trustcore/internal/errors"
	"github.com/allisson/trustcore/internal/httputil"
	serviceAuthService "github.com/allisson/trustcore/internal/serviceauth/service"
)

// exemptPaths are reachable without a service token. Load balancer probes and
// orchestrator health checks cannot mint tokens.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/healthz": {},
	"/ready":   {},
}

// RequestGateMiddleware enforces service-to-service authentication on every
// request except the health check paths.
//
// The middleware:
//  1. Skips verification for exempt paths (/health, /healthz, /ready)
//  2. Extracts the Bearer token from the Authorization header (case-insensitive)
//  3. Verifies signature, expiry, audience, and environment via the verifier
//  4. Stores the verified caller claims in the request context
//  5. Allows downstream handlers to access the caller via GetCaller()
//
// Authorization header format: "Bearer <token>" (case-insensitive "bearer").
//
// Error handling:
//   - Missing Authorization header → 401 Unauthorized
//   - Malformed Authorization header → 401 Unauthorized
//   - Invalid/expired token, wrong audience or environment → 401 Unauthorized
func RequestGateMiddleware(
	verifier serviceAuthService.TokenVerifier,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exempt := exemptPaths[c.Request.URL.Path]; exempt {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("service authentication failed: missing authorization header",
				slog.String("path", c.Request.URL.Path))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("service authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		token := authHeader[len(bearerPrefix):]
		if token == "" {
			logger.Debug("service authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		// X-Service-ID is advisory: when the caller sends it, the issuer claim
		// must match, which turns header/token mixups into a hard failure
		// instead of a confusing audit trail.
		expectedIssuer := c.GetHeader("X-Service-ID")

		claims, err := verifier.VerifyServiceToken(c.Request.Context(), token, expectedIssuer)
		if err != nil {
			logger.Debug("service authentication failed",
				slog.String("path", c.Request.URL.Path),
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithCaller(c.Request.Context(), claims)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("service authentication successful",
			slog.String("caller_service_id", claims.ServiceID),
			slog.String("caller_service_type", claims.ServiceType))

		c.Next()
	}
}

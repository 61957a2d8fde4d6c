package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careloop/portal-api/internal/identity"
	"github.com/careloop/portal-api/pkg/auth"
	apperrors "github.com/careloop/portal-api/pkg/errors"
	"github.com/careloop/portal-api/pkg/httputil"
)

type AuthMiddleware struct {
	tokens *auth.TokenService
}

func NewAuthMiddleware(tokens *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate validates the bearer token and puts the session on the
// request context for the identity resolver.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("missing authorization header")))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("invalid authorization format")))
			c.Abort()
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			c.Abort()
			return
		}

		session := &identity.Session{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}
		c.Request = c.Request.WithContext(identity.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// OptionalAuthenticate attaches a session when a valid bearer token is
// present and lets the request through otherwise. Demo flows resolve the
// acting doctor from the stored code instead of a session.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			if claims, err := m.tokens.Validate(parts[1]); err == nil {
				session := &identity.Session{
					UserID: claims.UserID,
					Email:  claims.Email,
					Role:   claims.Role,
				}
				c.Request = c.Request.WithContext(identity.WithSession(c.Request.Context(), session))
			}
		}
		c.Next()
	}
}

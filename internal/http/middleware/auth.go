package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/services"
)

const (
	userIDKey = "userID"
	userKey   = "user"
)

// Verifier resolves a bearer token to the user it was issued for.
// *services.AuthService satisfies it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// Authenticate requires "Authorization: Bearer <token>" and loads the caller.
// On success the user is stored under "user" and its id under "userID".
func Authenticate(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized: No token provided")
			return
		}

		u, err := v.Verify(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrUnauthorized):
			abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized: Invalid token")
			return
		default:
			LoggerFrom(c).Error().Err(err).Msg("token verification failed")
			abort(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		c.Set(userKey, u)
		c.Set(userIDKey, u.ID)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := UserFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized: No token provided")
			return
		}
		switch u.Role {
		case domain.RoleAdmin:
			c.Next()
		default:
			abort(c, http.StatusForbidden, "forbidden", "Forbidden: Admin access required")
		}
	}
}

// UserFrom returns the authenticated user set by Authenticate.
func UserFrom(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// abort writes the standard error envelope.
func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       code,
		"message":    msg,
	})
}

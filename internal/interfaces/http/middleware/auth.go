package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/infrastructure/auth"
	"github.com/betonplant/backend/internal/infrastructure/logger"
	"github.com/betonplant/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Auth context keys
const (
	ActorKey      = "actor"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Auth validates the bearer token and stores the authenticated actor in the
// gin context. Every route behind it can rely on GetActor succeeding.
func Auth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(header, BearerPrefix)

		actor, claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, "Token has expired")
				return
			}
			abortUnauthorized(c, "Token validation failed")
			return
		}

		c.Set(ActorKey, actor)
		c.Set(UsernameKey, claims.Username)

		ctx := logger.ContextWithActorID(c.Request.Context(), actor.ID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole gates a route group to the given roles
func RequireRole(roles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abortUnauthorized(c, "Not authenticated")
			return
		}
		for _, role := range roles {
			if actor.Is(role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
			dto.ErrCodeForbidden,
			"Insufficient role for this operation",
			c.GetString(RequestIDHeader),
		))
	}
}

// GetActor returns the authenticated actor stored by Auth
func GetActor(c *gin.Context) (shared.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
		dto.ErrCodeUnauthorized,
		message,
		c.GetString(RequestIDHeader),
	))
}

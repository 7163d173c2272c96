package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rumsan/gatekeeper/ability"
	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/service"
)

const (
	ctxUserKey    = "currentUser"
	ctxAbilityKey = "ability"
)

// AuthMiddleware creates middleware that validates access tokens and
// materializes the caller's ability set once per request.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		data, err := authService.ValidateAccessToken(auth[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxUserKey, data)
		c.Set(ctxAbilityKey, ability.NewSet(data.Permissions))

		c.Next()
	}
}

// RequireAbility creates middleware that rejects callers whose permission
// snapshot does not allow the action on the subject.
func RequireAbility(action, subject string) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := c.Get(ctxAbilityKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		if !set.(*ability.Set).Can(action, subject) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the token data set by AuthMiddleware.
func CurrentUser(c *gin.Context) (*core.TokenData, bool) {
	value, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	data, ok := value.(*core.TokenData)
	return data, ok
}

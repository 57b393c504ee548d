package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/childcare-reservation-api/internal/middleware"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) models.Actor {
	actor := models.Actor{IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := claimsFromContext(c); claims != nil {
		actor.Username = claims.Username
	}
	return actor
}

// pickQuery returns the first non-empty query value among keys, so camelCase
// and snake_case parameter spellings are both accepted.
func pickQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			return v
		}
	}
	return ""
}

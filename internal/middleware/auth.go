package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
	"github.com/noah-isme/childcare-reservation-api/pkg/response"
)

// ContextUserKey is the gin context key storing staff claims.
const ContextUserKey = "currentUser"

const basicRealm = `Basic realm="childcare-admin", charset="UTF-8"`

// StaffAuthenticator validates staff credentials.
type StaffAuthenticator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
	Authenticate(username, password string) (*models.JWTClaims, error)
}

// StaffAuth protects admin routes. It accepts a bearer access token or HTTP
// Basic credentials for the configured staff account.
func StaffAuth(auth StaffAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, appErrors.ErrUnauthorized)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 {
			unauthorized(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			return
		}

		var (
			claims *models.JWTClaims
			err    error
		)
		switch {
		case strings.EqualFold(parts[0], "Bearer"):
			claims, err = auth.ValidateToken(strings.TrimSpace(parts[1]))
		case strings.EqualFold(parts[0], "Basic"):
			username, password, ok := c.Request.BasicAuth()
			if !ok {
				unauthorized(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid basic credentials"))
				return
			}
			claims, err = auth.Authenticate(username, password)
		default:
			unauthorized(c, appErrors.Clone(appErrors.ErrUnauthorized, "unsupported authorization scheme"))
			return
		}
		if err != nil {
			unauthorized(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func unauthorized(c *gin.Context, err error) {
	if appErrors.FromError(err).Status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", basicRealm)
	}
	response.Error(c, err)
	c.Abort()
}

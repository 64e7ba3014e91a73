package middleware

import (
	"errors"
	"net/http"
	"strings"

	"nemt/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const requestContextKey = "request_context"

// Claims is the bearer token payload issued by the identity service.
type Claims struct {
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"org_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies an HS256 bearer token and stores the caller as a
// domain.RequestContext on the gin context.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims := &Claims{}
		_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}
		if claims.OrganizationID <= 0 || claims.UserID <= 0 {
			abortUnauthorized(c, "token is missing organization or user")
			return
		}

		c.Set(requestContextKey, domain.RequestContext{
			OrganizationID: claims.OrganizationID,
			UserID:         claims.UserID,
			Role:           strings.ToLower(strings.TrimSpace(claims.Role)),
			RequestID:      GetRequestID(c),
		})
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      msg,
		"code":       "unauthorized",
		"request_id": GetRequestID(c),
	})
}

// GetRequestContext returns the caller stored by Auth.
func GetRequestContext(c *gin.Context) (domain.RequestContext, bool) {
	v, ok := c.Get(requestContextKey)
	if !ok {
		return domain.RequestContext{}, false
	}
	rc, ok := v.(domain.RequestContext)
	return rc, ok
}

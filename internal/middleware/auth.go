package middleware

import (
	"net/http"
	"strings"
	"time"

	"giving-api/internal/config"
	"giving-api/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the caller identity the service needs: who is giving,
// and whether they may see aggregate analytics.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and stores the donor identity
// in the request context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.JSON(c, http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing bearer token"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			response.JSON(c, http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("donor_id", claims.Subject)
		c.Set("donor_name", claims.Name)
		c.Set("donor_email", claims.Email)
		c.Set("role", claims.Role)
		c.Set("request_time", time.Now())
		c.Next()
	}
}

// AdminRequired gates admin-only routes. Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			response.JSON(c, http.StatusForbidden, response.Error(http.StatusForbidden, "Admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// DonorID returns the authenticated donor id from the request context
func DonorID(c *gin.Context) string {
	return c.GetString("donor_id")
}

// DonorName returns the authenticated donor name from the request context
func DonorName(c *gin.Context) string {
	return c.GetString("donor_name")
}

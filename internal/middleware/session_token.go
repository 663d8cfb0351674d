package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IssueSessionToken mints the bearer token a client uses for all calls against
// one flow session. The token carries nothing but the session identity.
func IssueSessionToken(jwtSecret, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": sessionID,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(jwtSecret))
}

// SessionTokenMiddleware authenticates flow session calls. The token must be a
// bearer token whose session claim matches the session the route addresses.
func SessionTokenMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization credentials required"})
			c.Abort()
			return
		}

		bearerToken := strings.SplitN(authHeader, " ", 2)
		if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}
		tokenString := strings.TrimSpace(bearerToken[1])

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		sessionID, _ := claims["session_id"].(string)
		if sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token is not bound to a session"})
			c.Abort()
			return
		}

		if routeSession := c.Param("session_id"); routeSession != "" && routeSession != sessionID {
			c.JSON(http.StatusForbidden, gin.H{"error": "token does not match the requested session"})
			c.Abort()
			return
		}

		c.Set("session_id", sessionID)
		c.Next()
	}
}

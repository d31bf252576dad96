package middleware

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecretOnce sync.Once
	jwtSecretVal  []byte
)

func jwtSecret() []byte {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			panic("JWT_SECRET environment variable is not set")
		}
		jwtSecretVal = []byte(secret)
	})
	return jwtSecretVal
}

type Claims struct {
	AccountID     string `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller resolved from the bearer token.
// The boundary resolves it once; command services receive it explicitly.
type Identity struct {
	AccountID     string
	AccountNumber string
}

// GenerateToken issues a signed bearer token for the given account.
func GenerateToken(accountID, accountNumber string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(ttl)
	claims := Claims{
		AccountID:     accountID,
		AccountNumber: accountNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"errorCode": "INVALID_TOKEN",
				"message":   "Authorization header required",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"errorCode": "INVALID_TOKEN",
				"message":   "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		tokenString := parts[1]
		claims := &Claims{}

		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			return jwtSecret(), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"errorCode": "INVALID_TOKEN",
				"message":   "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("accountId", claims.AccountID)
		c.Set("accountNumber", claims.AccountNumber)
		c.Set("bearerToken", tokenString)
		c.Next()
	}
}

// GetIdentity returns the authenticated identity set by AuthMiddleware.
func GetIdentity(c *gin.Context) (Identity, bool) {
	accountID, exists := c.Get("accountId")
	if !exists {
		return Identity{}, false
	}
	accountNumber, exists := c.Get("accountNumber")
	if !exists {
		return Identity{}, false
	}
	return Identity{
		AccountID:     accountID.(string),
		AccountNumber: accountNumber.(string),
	}, true
}

// GetBearerToken returns the raw bearer token for forwarding to downstream
// services.
func GetBearerToken(c *gin.Context) (string, bool) {
	token, exists := c.Get("bearerToken")
	if !exists {
		return "", false
	}
	return token.(string), true
}

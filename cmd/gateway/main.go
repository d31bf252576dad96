package main

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/ferrobank/platform/shared/middleware"
	"github.com/gin-gonic/gin"
)

var (
	accountsServiceURL  = getEnv("ACCOUNTS_SERVICE_URL", "http://localhost:8081")
	transfersServiceURL = getEnv("TRANSFERS_SERVICE_URL", "http://localhost:8082")
	feesServiceURL      = getEnv("FEES_SERVICE_URL", "http://localhost:8083")
)

func main() {
	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "gateway"})
	})

	// Open routes: registration and login
	router.POST("/v1/accounts", proxyTo(accountsServiceURL))
	router.POST("/v1/auth/login", proxyTo(accountsServiceURL))

	// Account routes
	router.POST("/v1/accounts/deactivate", middleware.AuthMiddleware(), proxyTo(accountsServiceURL))
	router.POST("/v1/transactions", middleware.AuthMiddleware(), proxyTo(accountsServiceURL))
	router.GET("/v1/balance", middleware.AuthMiddleware(), proxyTo(accountsServiceURL))

	// Transfer routes
	router.POST("/v1/transfers", middleware.AuthMiddleware(), proxyTo(transfersServiceURL))
	router.GET("/v1/transfers/:requestId", middleware.AuthMiddleware(), proxyTo(transfersServiceURL))

	// Fee routes
	router.GET("/v1/fees", middleware.AuthMiddleware(), proxyTo(feesServiceURL))
	router.GET("/v1/fees/:requestId", middleware.AuthMiddleware(), proxyTo(feesServiceURL))

	port := getEnv("PORT", "8080")
	log.Printf("API gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func proxyTo(serviceURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Build target URL
		targetURL := serviceURL + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			targetURL += "?" + c.Request.URL.RawQuery
		}

		// Read request body
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		// Create new request
		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, bytes.NewBuffer(bodyBytes))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create request"})
			return
		}

		// Copy headers, bearer token included; each service re-validates it.
		for key, values := range c.Request.Header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		// Make request
		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			log.Printf("Error proxying request: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"message": "Service unavailable"})
			return
		}
		defer resp.Body.Close()

		// Read response
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to read response"})
			return
		}

		// Copy response headers
		for key, values := range resp.Header {
			for _, value := range values {
				c.Header(key, value)
			}
		}

		// Forward response
		c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		// Remove trailing slash if present
		return strings.TrimSuffix(value, "/")
	}
	return fallback
}

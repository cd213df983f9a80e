package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"stockdesk/internal/rate_limiter"
	"stockdesk/internal/repository"

	"github.com/gin-gonic/gin"
)

type LoginHandler struct {
	repo        *repository.Repository
	rateLimiter *rate_limiter.RateLimiter
}

func NewLoginHandler(r *repository.Repository) *LoginHandler {
	return &LoginHandler{
		repo:        r,
		rateLimiter: rate_limiter.NewRateLimiter(10, 5*time.Minute),
	}
}

func (l *LoginHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/auth", l.LoginHandler())
}

func (l *LoginHandler) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.GetHeader("X-Forwarded-For")
		if clientIP == "" {
			clientIP = c.GetHeader("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = c.ClientIP()
		}

		if strings.Contains(clientIP, ",") {
			clientIP = strings.Split(clientIP, ",")[0]
		}

		// Behind a proxy every client shares a private IP, so widen the
		// key with the user agent.
		if isPrivateIP(clientIP) {
			userAgent := c.GetHeader("User-Agent")
			clientIP = clientIP + ":" + userAgent
		}

		if !l.rateLimiter.IsAllowed(clientIP) {
			remaining := l.rateLimiter.GetRemainingRequests(clientIP)
			c.Header("X-RateLimit-Limit", "10")
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
			c.Header("X-RateLimit-Reset", time.Now().Add(5*time.Minute).Format(time.RFC3339))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many login attempts, try again later",
				"remaining": remaining,
				"reset_at":  time.Now().Add(5 * time.Minute).Format(time.RFC3339),
			})
			return
		}

		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
			return
		}

		user, err := AuthenticateUser(req.Username, req.Password, l.repo)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}

		token, err := GenerateJWT(strconv.Itoa(user.ID), user.Role, user.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func isPrivateIP(ip string) bool {
	privatePrefixes := []string{
		"10.",
		"172.16.",
		"172.17.",
		"172.18.",
		"172.19.",
		"172.20.",
		"172.21.",
		"172.22.",
		"172.23.",
		"172.24.",
		"172.25.",
		"172.26.",
		"172.27.",
		"172.28.",
		"172.29.",
		"172.30.",
		"172.31.",
		"192.168.",
		"127.",
		"169.254.",
		"::1",
		"fc00::",
		"fe80::",
	}

	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}

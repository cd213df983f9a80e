package security

import (
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"time"

	"stockdesk/internal/repository"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var jwtSecret []byte

func init() {
	secret := os.Getenv("JWT_SECRET")

	if secret == "" {
		if err := godotenv.Load(); err != nil {
			log.Printf("unable to load .env: %v", err)
		}
		secret = os.Getenv("JWT_SECRET")
	}

	if secret == "" {
		// Tokens signed with an ephemeral secret do not survive a
		// restart. Set JWT_SECRET in any real deployment.
		log.Println("Warning: JWT_SECRET is not set, generating an ephemeral secret")
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("failed to generate ephemeral JWT secret: %v", err)
		}
		jwtSecret = buf
		return
	}

	jwtSecret = []byte(secret)
}

func AuthenticateUser(username, password string, repo *repository.Repository) (*models.User, error) {
	var user models.User

	query := repo.GoquDBWrapper.Select("id", "username", "password_hash", "role").From("users").Where(goqu.Ex{"username": username})

	found, err := query.Executor().ScanStruct(&user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, err
	}

	return &user, nil
}

func GenerateJWT(userID string, role string, username string) (string, error) {
	claims := jwt.MapClaims{
		"userID":   userID,
		"role":     role,
		"username": username,
		"exp":      time.Now().Add(time.Hour * 120).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func GetUserIDFromToken(c *gin.Context) (string, error) {
	token, err := getTokenFromContext(c)
	if err != nil {
		return "", err
	}

	claims := token.Claims.(jwt.MapClaims)
	userID, ok := claims["userID"].(string)
	if !ok {
		return "", fmt.Errorf("userID is not a string")
	}

	return userID, nil
}

func getTokenFromContext(c *gin.Context) (*jwt.Token, error) {
	raw, exists := c.Get("token")
	if !exists {
		return nil, fmt.Errorf("token not found in context")
	}

	token, ok := raw.(*jwt.Token)
	if !ok {
		return nil, fmt.Errorf("invalid token type in context")
	}

	return token, nil
}

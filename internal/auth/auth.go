package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"net/mail"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet requirements")

	ErrSessionNotFound = database.ErrSessionNotFound
	ErrSessionExpired  = database.ErrSessionExpired
)

const sessionTTL = 24 * time.Hour

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Register creates a new account. The tier and review status come from the
// intake pipeline; direct registration defaults to a free student.
func Register(fullName, email, password string, role models.Role, tier models.Tier, review models.ReviewStatus) (*models.User, error) {
	if !ValidatePassword(password) {
		return nil, ErrWeakPassword
	}
	if _, err := database.GetUserByEmail(email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := database.CreateUser(fullName, email, hash, role, tier, review)
	if err != nil {
		return nil, err
	}
	log.Printf("[AUTH] Registered %s (tier=%s review=%s)", email, tier, review)
	return user, nil
}

// Authenticate validates credentials and returns the account
func Authenticate(email, password string) (*models.User, error) {
	user, err := database.GetUserByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.ValidatePassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CreateSession creates a portal session and returns its opaque token
func CreateSession(userID string) (string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", err
	}
	if err := database.CreateSession(userID, token, time.Now().Add(sessionTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateSession validates a session token and returns the user ID
func ValidateSession(token string) (string, error) {
	session, err := database.ValidateSession(token)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

// DeleteSession removes a session
func DeleteSession(token string) error {
	return database.DeleteSession(token)
}

// CleanupExpiredSessions removes expired session records from the database.
func CleanupExpiredSessions() error {
	return database.CleanupExpiredSessions()
}

// CreateToken creates a long-lived API token for a user
func CreateToken(userID, name string) (*models.Token, error) {
	tokenStr, err := generateRandomToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().AddDate(1, 0, 0)
	return database.CreateToken(userID, name, tokenStr, &expiresAt)
}

// ValidateToken validates an API token
func ValidateToken(token string) (*models.Token, error) {
	t, err := database.GetTokenByValue(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if t.ExpiresAt != nil && t.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiredToken
	}
	return t, nil
}

// DeleteToken deletes an API token
func DeleteToken(userID, tokenID string) error {
	return database.DeleteToken(userID, tokenID)
}

// ListTokens lists all tokens for a user
func ListTokens(userID string) ([]*models.Token, error) {
	return database.GetUserTokens(userID)
}

func generateRandomToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

// --- Validation Helpers ---

// PasswordRequirements defines the complexity requirements for a password
type PasswordRequirements struct {
	MinLength int
	HasUpper  bool
	HasLower  bool
	HasNumber bool
}

// GetPasswordRequirements returns the current password policy
func GetPasswordRequirements() PasswordRequirements {
	return PasswordRequirements{
		MinLength: 8,
		HasUpper:  true,
		HasLower:  true,
		HasNumber: true,
	}
}

// ValidatePassword checks if a password meets the complexity requirements.
func ValidatePassword(password string) bool {
	var hasUpper, hasLower, hasNumber bool
	if len(password) < GetPasswordRequirements().MinLength {
		return false
	}
	for _, char := range password {
		switch {
		case 'A' <= char && char <= 'Z':
			hasUpper = true
		case 'a' <= char && char <= 'z':
			hasLower = true
		case '0' <= char && char <= '9':
			hasNumber = true
		}
	}
	return hasUpper && hasLower && hasNumber
}

// ValidateEmail checks if an email has a valid format.
func ValidateEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

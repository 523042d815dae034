package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

// CreateSession stores a new portal session
func CreateSession(userID, token string, expiresAt time.Time) error {
	_, err := dbConn.Exec(rebind(
		"INSERT INTO sessions (id, user_id, token, created_at, expires_at) VALUES (?, ?, ?, ?, ?)"),
		GenerateID(), userID, token, time.Now().UTC(), expiresAt,
	)
	return err
}

// ValidateSession looks up a session by token and checks expiry
func ValidateSession(token string) (*models.Session, error) {
	session := &models.Session{}
	err := dbConn.QueryRow(rebind(
		"SELECT id, user_id, token, created_at, expires_at FROM sessions WHERE token = ?"),
		token,
	).Scan(&session.ID, &session.UserID, &session.Token, &session.CreatedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.ExpiresAt.Before(time.Now()) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// DeleteSession removes a session
func DeleteSession(token string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM sessions WHERE token = ?"), token)
	return err
}

// CleanupExpiredSessions removes expired session rows
func CleanupExpiredSessions() error {
	_, err := dbConn.Exec(rebind("DELETE FROM sessions WHERE expires_at < ?"), time.Now().UTC())
	return err
}

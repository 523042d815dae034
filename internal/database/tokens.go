package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// CreateToken stores a new API token
func CreateToken(userID, name, token string, expiresAt *time.Time) (*models.Token, error) {
	t := &models.Token{
		ID:        GenerateID(),
		UserID:    userID,
		Token:     token,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	_, err := dbConn.Exec(rebind(
		"INSERT INTO tokens (id, user_id, token, name, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)"),
		t.ID, t.UserID, t.Token, t.Name, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTokenByValue retrieves a token row by its value
func GetTokenByValue(token string) (*models.Token, error) {
	t := &models.Token{}
	err := dbConn.QueryRow(rebind(
		"SELECT id, user_id, token, name, created_at, expires_at FROM tokens WHERE token = ?"),
		token,
	).Scan(&t.ID, &t.UserID, &t.Token, &t.Name, &t.CreatedAt, &t.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetUserTokens lists a user's API tokens
func GetUserTokens(userID string) ([]*models.Token, error) {
	rows, err := dbConn.Query(rebind(
		"SELECT id, user_id, token, name, created_at, expires_at FROM tokens WHERE user_id = ? ORDER BY created_at DESC"),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*models.Token
	for rows.Next() {
		t := &models.Token{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Name, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// DeleteToken removes a token owned by the given user
func DeleteToken(userID, tokenID string) error {
	result, err := dbConn.Exec(rebind("DELETE FROM tokens WHERE id = ? AND user_id = ?"), tokenID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("token not found or not owned by user")
	}
	return nil
}

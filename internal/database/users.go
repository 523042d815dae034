package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

var ErrNotFound = errors.New("not found")

// CreateUser inserts a new account. The password must already be hashed.
func CreateUser(fullName, email, passwordHash string, role models.Role, tier models.Tier, review models.ReviewStatus) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		ID:           GenerateID(),
		FullName:     fullName,
		Email:        email,
		Password:     passwordHash,
		Role:         role,
		Tier:         tier,
		ReviewStatus: review,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := dbConn.Exec(rebind(
		"INSERT INTO users (id, full_name, email, password, role, tier, review_status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		user.ID, user.FullName, user.Email, user.Password, string(user.Role), string(user.Tier), string(user.ReviewStatus), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

const userColumns = "id, full_name, email, password, role, tier, review_status, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var role, tier, review string
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.Password, &role, &tier, &review, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	user.Tier = models.ParseTier(tier)
	user.ReviewStatus = models.ReviewStatus(review)
	return user, nil
}

// GetUserByEmail retrieves a user by email
func GetUserByEmail(email string) (*models.User, error) {
	row := dbConn.QueryRow(rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), email)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID
func GetUserByID(id string) (*models.User, error) {
	row := dbConn.QueryRow(rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	return scanUser(row)
}

// GetStudents lists every non-admin account, newest first
func GetStudents() ([]*models.User, error) {
	rows, err := dbConn.Query(rebind("SELECT " + userColumns + " FROM users WHERE role = 'student' ORDER BY created_at DESC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserTier sets a user's tier and review status in one write; this
// is the only mutation path for entitlements outside of signup.
func UpdateUserTier(userID string, tier models.Tier, review models.ReviewStatus) error {
	result, err := dbConn.Exec(rebind(
		"UPDATE users SET tier = ?, review_status = ?, updated_at = ? WHERE id = ?"),
		string(tier), string(review), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// PromoteToAdmin grants an account the admin role
func PromoteToAdmin(userID string) error {
	_, err := dbConn.Exec(rebind(
		"UPDATE users SET role = 'admin', updated_at = ? WHERE id = ?"),
		time.Now().UTC(), userID,
	)
	return err
}

// GetUserCount returns the total number of accounts
func GetUserCount() (int, error) {
	var count int
	err := dbConn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

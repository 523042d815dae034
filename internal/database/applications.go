package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// ErrAlreadyDecided is returned when a second decision is attempted on an
// application. Decisions are terminal: first one wins.
var ErrAlreadyDecided = errors.New("application already decided")

// CreateApplication records a paid-tier enrollment request
func CreateApplication(userID string, requestedTier models.Tier) (*models.Application, error) {
	app := &models.Application{
		ID:            GenerateID(),
		UserID:        userID,
		RequestedTier: requestedTier,
		Status:        models.ApplicationPending,
		SubmittedAt:   time.Now().UTC(),
	}
	_, err := dbConn.Exec(rebind(
		"INSERT INTO applications (id, user_id, requested_tier, status, submitted_at) VALUES (?, ?, ?, ?, ?)"),
		app.ID, app.UserID, string(app.RequestedTier), string(app.Status), app.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	return app, nil
}

const applicationColumns = "id, user_id, requested_tier, status, submitted_at, decided_at, decided_by"

func scanApplication(row interface{ Scan(...any) error }) (*models.Application, error) {
	app := &models.Application{}
	var tier, status string
	err := row.Scan(&app.ID, &app.UserID, &tier, &status, &app.SubmittedAt, &app.DecidedAt, &app.DecidedBy)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	app.RequestedTier = models.ParseTier(tier)
	app.Status = models.ApplicationStatus(status)
	return app, nil
}

// GetApplicationByID retrieves one application
func GetApplicationByID(id string) (*models.Application, error) {
	row := dbConn.QueryRow(rebind("SELECT "+applicationColumns+" FROM applications WHERE id = ?"), id)
	return scanApplication(row)
}

// GetPendingApplications lists undecided applications with their users,
// oldest first so the queue is reviewed in submission order
func GetPendingApplications() ([]*models.Application, error) {
	rows, err := dbConn.Query(rebind(
		"SELECT " + applicationColumns + " FROM applications WHERE status = 'pending' ORDER BY submitted_at ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, app := range apps {
		if user, err := GetUserByID(app.UserID); err == nil {
			app.User = user
		}
	}
	return apps, nil
}

// DecideApplication flips a pending application to its terminal status and
// applies the resulting tier to the user in the same transaction: if the
// tier write fails, the application stays pending and the decision can be
// retried. The conditional WHERE guards the double-decide race: if another
// decision landed first, zero rows match and ErrAlreadyDecided comes back.
func DecideApplication(id string, status models.ApplicationStatus, decidedBy, userID string, tier models.Tier) error {
	tx, err := dbConn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.Exec(rebind(
		"UPDATE applications SET status = ?, decided_at = ?, decided_by = ? WHERE id = ? AND status = 'pending'"),
		string(status), now, decidedBy, id,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := GetApplicationByID(id); err != nil {
			return err
		}
		return ErrAlreadyDecided
	}

	result, err = tx.Exec(rebind(
		"UPDATE users SET tier = ?, review_status = ?, updated_at = ? WHERE id = ?"),
		string(tier), string(models.ReviewNone), now, userID,
	)
	if err != nil {
		return err
	}
	if rows, err = result.RowsAffected(); err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ApprovedApplication pairs a decision time with the plan price that was
// granted; the dashboard buckets these into the monthly revenue trend.
type ApprovedApplication struct {
	RequestedTier models.Tier
	DecidedAt     time.Time
}

// GetApprovedApplications lists every approved application's tier and
// decision time
func GetApprovedApplications() ([]ApprovedApplication, error) {
	rows, err := dbConn.Query(rebind(
		"SELECT requested_tier, decided_at FROM applications WHERE status = 'approved' AND decided_at IS NOT NULL"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approved []ApprovedApplication
	for rows.Next() {
		var a ApprovedApplication
		var tier string
		if err := rows.Scan(&tier, &a.DecidedAt); err != nil {
			return nil, err
		}
		a.RequestedTier = models.ParseTier(tier)
		approved = append(approved, a)
	}
	return approved, rows.Err()
}

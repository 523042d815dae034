package database

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/shopspring/decimal"
)

// runMigrations creates the schema if it doesn't exist. Row IDs are
// generated app-side (uuid) so the same statements work on both dialects,
// with only the column types swapped.
func runMigrations(db *sql.DB, dialect string) error {
	ts := "DATETIME"
	boolDefFalse := "BOOLEAN NOT NULL DEFAULT 0"
	if dialect == "postgres" {
		ts = "TIMESTAMP WITH TIME ZONE"
		boolDefFalse = "BOOLEAN NOT NULL DEFAULT FALSE"
	}

	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'student',
			tier TEXT NOT NULL DEFAULT 'free',
			review_status TEXT NOT NULL DEFAULT 'none',
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, ts, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT UNIQUE NOT NULL,
			created_at %s NOT NULL,
			expires_at %s NOT NULL
		)`, ts, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tokens (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			created_at %s NOT NULL,
			expires_at %s
		)`, ts, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS applications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			requested_tier TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			submitted_at %s NOT NULL,
			decided_at %s,
			decided_by TEXT
		)`, ts, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL,
			quantity REAL NOT NULL,
			pnl REAL,
			notes TEXT NOT NULL DEFAULT '',
			screenshot_key TEXT,
			verdict TEXT,
			verdict_reason TEXT,
			created_at %s NOT NULL
		)`, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			done %s,
			created_at %s NOT NULL
		)`, boolDefFalse, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS courses (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tier_required TEXT NOT NULL DEFAULT 'foundation',
			position INTEGER NOT NULL DEFAULT 0,
			created_at %s NOT NULL
		)`, ts),
		`CREATE TABLE IF NOT EXISTS course_modules (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS enrollments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			enrolled_at %s NOT NULL,
			UNIQUE (user_id, course_id)
		)`, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS subscription_plans (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tier TEXT UNIQUE NOT NULL,
			price_usd TEXT NOT NULL,
			blurb TEXT NOT NULL DEFAULT '',
			requires_review %s
		)`, boolDefFalse),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS community_links (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			url TEXT NOT NULL,
			premium_only %s,
			position INTEGER NOT NULL DEFAULT 0
		)`, boolDefFalse),
		`CREATE TABLE IF NOT EXISTS trading_rules (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rule_violations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			trade_id TEXT REFERENCES trades(id) ON DELETE SET NULL,
			rule TEXT NOT NULL,
			penalty_points INTEGER NOT NULL DEFAULT 1,
			created_at %s NOT NULL
		)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tokens_token ON tokens(token)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_user_id ON applications(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user_id ON trades(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user_id ON todos(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_enrollments_course_id ON enrollments(course_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rule_violations_user_id ON rule_violations(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %v", err)
		}
	}
	return nil
}

// seedDefaults inserts the subscription plans if the table is empty.
func seedDefaults() error {
	var count int
	if err := dbConn.QueryRow("SELECT COUNT(*) FROM subscription_plans").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	plans := []models.SubscriptionPlan{
		{Name: "Free", Tier: models.TierFree, PriceUSD: decimal.Zero,
			Blurb: "Community access and a taste of the curriculum."},
		{Name: "Foundation", Tier: models.TierFoundation, PriceUSD: decimal.NewFromInt(49),
			Blurb: "Full curriculum, trade journal and daily checklist.", RequiresReview: true},
		{Name: "Professional", Tier: models.TierProfessional, PriceUSD: decimal.NewFromInt(129),
			Blurb: "Everything in Foundation plus the AI trade assistant.", RequiresReview: true},
		{Name: "Elite", Tier: models.TierElite, PriceUSD: decimal.NewFromInt(299),
			Blurb: "All features plus priority mentor review.", RequiresReview: true},
	}
	for i := range plans {
		if _, err := CreatePlan(&plans[i]); err != nil {
			return err
		}
	}
	log.Printf("[DB] Seeded %d subscription plans", len(plans))
	return nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// User represents a student or admin account
type User struct {
	ID           string       `json:"id" db:"id"`
	FullName     string       `json:"full_name" db:"full_name"`
	Email        string       `json:"email" db:"email"`
	Password     string       `json:"-" db:"password"` // bcrypt hash, never sent to client
	Role         Role         `json:"role" db:"role"`
	Tier         Tier         `json:"tier" db:"tier"`
	ReviewStatus ReviewStatus `json:"review_status" db:"review_status"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// ValidatePassword checks if the provided password matches the user's password
func (u *User) ValidatePassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// IsAdmin reports whether the account belongs to the admin back-office
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ApplicationStatus tracks an enrollment application through its one decision
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a request to be granted a paid tier, awaiting admin review.
// It is decided exactly once; there is no re-review cycle.
type Application struct {
	ID            string            `json:"id" db:"id"`
	UserID        string            `json:"user_id" db:"user_id"`
	RequestedTier Tier              `json:"requested_tier" db:"requested_tier"`
	Status        ApplicationStatus `json:"status" db:"status"`
	SubmittedAt   time.Time         `json:"submitted_at" db:"submitted_at"`
	DecidedAt     *time.Time        `json:"decided_at,omitempty" db:"decided_at"`
	DecidedBy     *string           `json:"decided_by,omitempty" db:"decided_by"`
	User          *User             `json:"user,omitempty"`
}

// TradeDirection is the side of a journaled trade
type TradeDirection string

const (
	DirectionLong  TradeDirection = "long"
	DirectionShort TradeDirection = "short"
)

// TradeVerdict is the assistant's classification of a trade
type TradeVerdict string

const (
	VerdictApproved TradeVerdict = "approved"
	VerdictWarning  TradeVerdict = "warning"
	VerdictRejected TradeVerdict = "rejected"
)

// Trade is a single trade journal entry
type Trade struct {
	ID            string         `json:"id" db:"id"`
	UserID        string         `json:"user_id" db:"user_id"`
	Symbol        string         `json:"symbol" db:"symbol"`
	Direction     TradeDirection `json:"direction" db:"direction"`
	EntryPrice    float64        `json:"entry_price" db:"entry_price"`
	ExitPrice     *float64       `json:"exit_price,omitempty" db:"exit_price"`
	Quantity      float64        `json:"quantity" db:"quantity"`
	PnL           *float64       `json:"pnl,omitempty" db:"pnl"`
	Notes         string         `json:"notes" db:"notes"`
	ScreenshotKey *string        `json:"screenshot_key,omitempty" db:"screenshot_key"`
	Verdict       *TradeVerdict  `json:"verdict,omitempty" db:"verdict"`
	VerdictReason *string        `json:"verdict_reason,omitempty" db:"verdict_reason"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	User          *User          `json:"user,omitempty"`
}

// Todo is a per-student checklist item
type Todo struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Text      string    `json:"text" db:"text"`
	Done      bool      `json:"done" db:"done"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Course is a curriculum entry
type Course struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	TierRequired Tier      `json:"tier_required" db:"tier_required"`
	Position     int       `json:"position" db:"position"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	Modules      []*CourseModule `json:"modules,omitempty"`
}

// CourseModule is a single lesson within a course
type CourseModule struct {
	ID       string `json:"id" db:"id"`
	CourseID string `json:"course_id" db:"course_id"`
	Title    string `json:"title" db:"title"`
	Content  string `json:"content" db:"content"`
	Position int    `json:"position" db:"position"`
}

// Enrollment links a student to a course
type Enrollment struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	CourseID   string    `json:"course_id" db:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"`
}

// SubscriptionPlan describes a purchasable tier
type SubscriptionPlan struct {
	ID             string          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Tier           Tier            `json:"tier" db:"tier"`
	PriceUSD       decimal.Decimal `json:"price_usd" db:"price_usd"`
	Blurb          string          `json:"blurb" db:"blurb"`
	RequiresReview bool            `json:"requires_review" db:"requires_review"`
}

// CommunityLink is a row on the community page; premium rows are gated
type CommunityLink struct {
	ID          string `json:"id" db:"id"`
	Label       string `json:"label" db:"label"`
	URL         string `json:"url" db:"url"`
	PremiumOnly bool   `json:"premium_only" db:"premium_only"`
	Position    int    `json:"position" db:"position"`
}

// TradingRule is one line of the ordered rule list fed to the assistant
type TradingRule struct {
	ID       string `json:"id" db:"id"`
	Text     string `json:"text" db:"text"`
	Position int    `json:"position" db:"position"`
}

// RuleViolation records a rule broken by a journaled trade
type RuleViolation struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	TradeID       *string   `json:"trade_id,omitempty" db:"trade_id"`
	Rule          string    `json:"rule" db:"rule"`
	PenaltyPoints int       `json:"penalty_points" db:"penalty_points"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Session represents a portal session
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Token represents an API token
type Token struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"token"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

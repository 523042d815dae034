package models

// Tier is the subscription level controlling feature access.
type Tier string

const (
	TierFree         Tier = "free"
	TierFoundation   Tier = "foundation"
	TierProfessional Tier = "professional"
	TierElite        Tier = "elite"
)

// ReviewStatus marks whether an account is waiting on an admin decision.
// A pending account keeps the entitlements of a free one until decided.
type ReviewStatus string

const (
	ReviewNone    ReviewStatus = "none"
	ReviewPending ReviewStatus = "pending"
)

// Role separates the student portal from the admin back-office.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseTier maps a stored tier string back to a Tier, defaulting to free
// so an unknown value can never widen access.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierFoundation, TierProfessional, TierElite:
		return Tier(s)
	default:
		return TierFree
	}
}

// IsPaid reports whether the tier is a purchased one.
func (t Tier) IsPaid() bool {
	return t == TierFoundation || t == TierProfessional || t == TierElite
}

// Valid reports whether the tier is one of the four known levels.
func (t Tier) Valid() bool {
	return t == TierFree || t.IsPaid()
}

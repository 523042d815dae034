// Package entitlement decides what a given account may see and do.
// Decisions are computed fresh on every navigation: an account's tier can
// change underneath a live session when an admin decides its application,
// so nothing here is cached or stored.
package entitlement

import "github.com/ChartMentor-io/chartmentor/internal/models"

// Feature is one of the fixed set of gated product areas.
type Feature string

const (
	FeatureAIAssistant      Feature = "ai-assistant"
	FeatureTradeJournal     Feature = "trade-journal"
	FeatureTodoList         Feature = "todo-list"
	FeatureCourseCurriculum Feature = "course-curriculum"
	FeatureCommunityPremium Feature = "community-premium"
	FeatureAdminViews       Feature = "admin-views"
)

// AllFeatures lists every gated feature, in evaluation-rule order.
var AllFeatures = []Feature{
	FeatureAIAssistant,
	FeatureTradeJournal,
	FeatureTodoList,
	FeatureCourseCurriculum,
	FeatureCommunityPremium,
	FeatureAdminViews,
}

// Reason explains why a feature is locked.
type Reason string

const (
	ReasonPendingApproval Reason = "pending-approval"
	ReasonTierTooLow      Reason = "tier-too-low"
	ReasonAdminOnly       Reason = "admin-only"
)

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed bool
	Reason  Reason // set only when locked
}

var allowed = Decision{Allowed: true}

func locked(r Reason) Decision {
	return Decision{Reason: r}
}

// Identity is the minimal slice of an account the evaluator needs. It is
// passed explicitly everywhere; there is no ambient current-user state.
type Identity struct {
	UserID       string
	Role         models.Role
	Tier         models.Tier
	ReviewStatus models.ReviewStatus
}

// IdentityOf builds an Identity from a stored user row.
func IdentityOf(u *models.User) Identity {
	return Identity{
		UserID:       u.ID,
		Role:         u.Role,
		Tier:         u.Tier,
		ReviewStatus: u.ReviewStatus,
	}
}

// Evaluate returns the decision for one identity and one feature. It is
// pure and total: every combination of role, tier, review status and
// feature yields a decision, including zero values and unknown strings
// (which are treated as a free-tier student).
func Evaluate(id Identity, f Feature) Decision {
	// Admins bypass every tier gate, including features outside the
	// admin namespace.
	if id.Role == models.RoleAdmin {
		return allowed
	}

	if f == FeatureAdminViews {
		return locked(ReasonAdminOnly)
	}

	// An account under review keeps free-tier access until decided.
	// Community read and the dashboard notice are handled by the view
	// router; every gated feature stays locked.
	if id.ReviewStatus == models.ReviewPending {
		return locked(ReasonPendingApproval)
	}

	tier := id.Tier
	if !tier.Valid() {
		tier = models.TierFree
	}

	switch f {
	case FeatureAIAssistant:
		if tier == models.TierProfessional || tier == models.TierElite {
			return allowed
		}
		return locked(ReasonTierTooLow)
	case FeatureTradeJournal, FeatureTodoList, FeatureCourseCurriculum, FeatureCommunityPremium:
		if tier.IsPaid() {
			return allowed
		}
		return locked(ReasonTierTooLow)
	default:
		// Unknown feature tags never widen access.
		return locked(ReasonTierTooLow)
	}
}

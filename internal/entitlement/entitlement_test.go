package entitlement

import (
	"testing"

	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/stretchr/testify/assert"
)

func student(tier models.Tier, review models.ReviewStatus) Identity {
	return Identity{UserID: "u1", Role: models.RoleStudent, Tier: tier, ReviewStatus: review}
}

func admin() Identity {
	return Identity{UserID: "a1", Role: models.RoleAdmin, Tier: models.TierFree, ReviewStatus: models.ReviewNone}
}

// TestEvaluateTotalAndDeterministic walks the full input domain, including
// zero values and garbage strings, and checks that Evaluate never panics
// and that calling twice yields identical output.
func TestEvaluateTotalAndDeterministic(t *testing.T) {
	tiers := []models.Tier{
		models.TierFree, models.TierFoundation, models.TierProfessional, models.TierElite,
		models.Tier(""), models.Tier("elite-pending"), models.Tier("bogus"),
	}
	reviews := []models.ReviewStatus{
		models.ReviewNone, models.ReviewPending, models.ReviewStatus(""), models.ReviewStatus("???"),
	}
	roles := []models.Role{models.RoleStudent, models.RoleAdmin, models.Role(""), models.Role("owner")}
	features := append([]Feature{}, AllFeatures...)
	features = append(features, Feature(""), Feature("not-a-feature"))

	for _, role := range roles {
		for _, tier := range tiers {
			for _, review := range reviews {
				for _, f := range features {
					id := Identity{Role: role, Tier: tier, ReviewStatus: review}
					first := Evaluate(id, f)
					second := Evaluate(id, f)
					assert.Equal(t, first, second, "role=%s tier=%s review=%s feature=%s", role, tier, review, f)
					if !first.Allowed {
						assert.NotEmpty(t, first.Reason)
					}
				}
			}
		}
	}
}

// TestPendingLocksEverything covers the transitional state: a pending
// account keeps free access, so every gated feature is locked with the
// pending reason regardless of the requested tier.
func TestPendingLocksEverything(t *testing.T) {
	for _, tier := range []models.Tier{models.TierFoundation, models.TierProfessional, models.TierElite} {
		id := student(tier, models.ReviewPending)
		for _, f := range AllFeatures {
			d := Evaluate(id, f)
			assert.False(t, d.Allowed, "tier=%s feature=%s", tier, f)
			if f == FeatureAdminViews {
				assert.Equal(t, ReasonAdminOnly, d.Reason)
			} else {
				assert.Equal(t, ReasonPendingApproval, d.Reason, "tier=%s feature=%s", tier, f)
			}
		}
	}
}

func TestFreeTierLocks(t *testing.T) {
	id := student(models.TierFree, models.ReviewNone)
	for _, f := range []Feature{
		FeatureTradeJournal, FeatureTodoList, FeatureCourseCurriculum,
		FeatureCommunityPremium, FeatureAIAssistant,
	} {
		d := Evaluate(id, f)
		assert.False(t, d.Allowed, "feature=%s", f)
		assert.Equal(t, ReasonTierTooLow, d.Reason)
	}
}

func TestAIAssistantNeedsProfessional(t *testing.T) {
	assert.False(t, Evaluate(student(models.TierFoundation, models.ReviewNone), FeatureAIAssistant).Allowed)
	assert.True(t, Evaluate(student(models.TierProfessional, models.ReviewNone), FeatureAIAssistant).Allowed)
	assert.True(t, Evaluate(student(models.TierElite, models.ReviewNone), FeatureAIAssistant).Allowed)
}

func TestFoundationUnlocksCoreFeatures(t *testing.T) {
	id := student(models.TierFoundation, models.ReviewNone)
	for _, f := range []Feature{
		FeatureTradeJournal, FeatureTodoList, FeatureCourseCurriculum, FeatureCommunityPremium,
	} {
		assert.True(t, Evaluate(id, f).Allowed, "feature=%s", f)
	}
}

func TestAdminBypassesAllLocks(t *testing.T) {
	for _, f := range AllFeatures {
		assert.True(t, Evaluate(admin(), f).Allowed, "feature=%s", f)
	}
}

func TestStudentsNeverGetAdminViews(t *testing.T) {
	for _, tier := range []models.Tier{models.TierFree, models.TierFoundation, models.TierProfessional, models.TierElite} {
		d := Evaluate(student(tier, models.ReviewNone), FeatureAdminViews)
		assert.False(t, d.Allowed, "tier=%s", tier)
		assert.Equal(t, ReasonAdminOnly, d.Reason)
	}
}

func TestUnknownTierTreatedAsFree(t *testing.T) {
	d := Evaluate(student(models.Tier("platinum"), models.ReviewNone), FeatureTradeJournal)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonTierTooLow, d.Reason)
}

package portal

import (
	"testing"

	"github.com/ChartMentor-io/chartmentor/internal/entitlement"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/stretchr/testify/assert"
)

func student(tier models.Tier, review models.ReviewStatus) entitlement.Identity {
	return entitlement.Identity{UserID: "u1", Role: models.RoleStudent, Tier: tier, ReviewStatus: review}
}

func admin() entitlement.Identity {
	return entitlement.Identity{UserID: "a1", Role: models.RoleAdmin, Tier: models.TierElite}
}

func TestInitialViewByRole(t *testing.T) {
	assert.Equal(t, ViewDashboard, InitialView(student(models.TierFoundation, models.ReviewNone)))
	assert.Equal(t, ViewAdminDashboard, InitialView(admin()))
}

func TestProfessionalGetsAssistant(t *testing.T) {
	r := Resolve(ViewAI, student(models.TierProfessional, models.ReviewNone))
	assert.Equal(t, ViewAI, r.Next)
	assert.Equal(t, ContentFeature, r.Content)
}

func TestFoundationLockedOutOfAssistant(t *testing.T) {
	r := Resolve(ViewAI, student(models.TierFoundation, models.ReviewNone))
	assert.Equal(t, ViewAI, r.Next)
	assert.Equal(t, ContentLocked, r.Content)
	assert.Equal(t, entitlement.ReasonTierTooLow, r.Reason)
}

func TestFreeLockedOutOfJournal(t *testing.T) {
	r := Resolve(ViewJournal, student(models.TierFree, models.ReviewNone))
	assert.Equal(t, ViewJournal, r.Next)
	assert.Equal(t, ContentLocked, r.Content)
	assert.Equal(t, entitlement.ReasonTierTooLow, r.Reason)
}

func TestFreeDashboardRedirectsToCommunity(t *testing.T) {
	r := Resolve(ViewDashboard, student(models.TierFree, models.ReviewNone))
	assert.Equal(t, ViewCommunity, r.Next)
	assert.Equal(t, ContentFeature, r.Content)
}

func TestPendingDashboardShowsUnderReviewInPlace(t *testing.T) {
	r := Resolve(ViewDashboard, student(models.TierElite, models.ReviewPending))
	assert.Equal(t, ViewDashboard, r.Next)
	assert.Equal(t, ContentUnderReview, r.Content)
}

func TestPendingLockedOutOfGatedViews(t *testing.T) {
	id := student(models.TierProfessional, models.ReviewPending)
	for _, v := range []View{ViewAI, ViewJournal, ViewTodos, ViewCourses, ViewLesson} {
		r := Resolve(v, id)
		assert.Equal(t, v, r.Next, "view %s", v)
		assert.Equal(t, ContentLocked, r.Content, "view %s", v)
		assert.Equal(t, entitlement.ReasonPendingApproval, r.Reason, "view %s", v)
	}
}

func TestPendingKeepsCommunityRead(t *testing.T) {
	r := Resolve(ViewCommunity, student(models.TierProfessional, models.ReviewPending))
	assert.Equal(t, ContentFeature, r.Content)
}

func TestStudentsNeverResolveAdminViews(t *testing.T) {
	for _, tier := range []models.Tier{models.TierFree, models.TierFoundation, models.TierProfessional, models.TierElite} {
		for _, v := range []View{ViewAdminDashboard, ViewAdminStudents, ViewAdminTrades, ViewAdminAnalytics, ViewAdminRules, ViewAdminContent, ViewSettings} {
			r := Resolve(v, student(tier, models.ReviewNone))
			assert.Equal(t, v, r.Next)
			assert.Equal(t, ContentUnauthorized, r.Content, "tier %s view %s", tier, v)
		}
	}
}

func TestAdminBypassesEveryGate(t *testing.T) {
	id := admin()
	for _, v := range []View{ViewAdminDashboard, ViewSettings, ViewAI, ViewJournal, ViewTodos, ViewCourses, ViewDashboard, ViewCommunity} {
		r := Resolve(v, id)
		assert.Equal(t, v, r.Next, "view %s", v)
		assert.Equal(t, ContentFeature, r.Content, "view %s", v)
	}
}

func TestPublicViewsAlwaysRender(t *testing.T) {
	id := student(models.TierFree, models.ReviewNone)
	for _, v := range []View{ViewLanding, ViewLogin, ViewSignup, ViewApplicationReview} {
		r := Resolve(v, id)
		assert.Equal(t, v, r.Next)
		assert.Equal(t, ContentFeature, r.Content)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	ids := []entitlement.Identity{
		student(models.TierFree, models.ReviewNone),
		student(models.TierFoundation, models.ReviewNone),
		student(models.TierElite, models.ReviewPending),
		admin(),
	}
	views := []View{ViewDashboard, ViewAI, ViewJournal, ViewCommunity, ViewAdminDashboard}
	for _, id := range ids {
		for _, v := range views {
			first := Resolve(v, id)
			second := Resolve(v, id)
			assert.Equal(t, first, second)
		}
	}
}

func TestTierChangeTakesEffectOnNextResolve(t *testing.T) {
	id := student(models.TierFree, models.ReviewNone)
	r := Resolve(ViewJournal, id)
	assert.Equal(t, ContentLocked, r.Content)

	// Admin approves the account mid-session
	id.Tier = models.TierFoundation
	r = Resolve(ViewJournal, id)
	assert.Equal(t, ContentFeature, r.Content)
}

// Package portal serves the browser-facing application: the public pages,
// the student area and the admin back-office. The view router here is the
// single authority on which screen an account lands on; handlers never
// pick templates on their own.
package portal

import (
	"github.com/ChartMentor-io/chartmentor/internal/entitlement"
	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// View is a screen name. Student and admin screens live in disjoint
// namespaces; the public pages sit outside both.
type View string

const (
	// Public
	ViewLanding           View = "landing"
	ViewLogin             View = "login"
	ViewSignup            View = "signup"
	ViewApplicationReview View = "application-review"

	// Student namespace
	ViewDashboard View = "dashboard"
	ViewCourses   View = "courses"
	ViewLesson    View = "lesson"
	ViewAI        View = "ai"
	ViewJournal   View = "journal"
	ViewTodos     View = "todos"
	ViewCommunity View = "community"

	// Admin namespace
	ViewAdminDashboard View = "admin-dashboard"
	ViewAdminStudents  View = "admin-students"
	ViewAdminTrades    View = "admin-trades"
	ViewAdminAnalytics View = "admin-analytics"
	ViewAdminRules     View = "admin-rules"
	ViewAdminContent   View = "admin-content"
	ViewSettings       View = "settings"
)

// ContentKind says what occupies the screen slot for a resolved view
type ContentKind string

const (
	ContentFeature      ContentKind = "feature"      // render the view's component
	ContentLocked       ContentKind = "locked"       // upsell screen keyed by Reason
	ContentUnderReview  ContentKind = "under-review" // application pending interstitial
	ContentUnauthorized ContentKind = "unauthorized" // admin namespace, non-admin account
)

// Resolution is the router's answer: which view the session is now on and
// what to render in its slot.
type Resolution struct {
	Next    View
	Content ContentKind
	Reason  entitlement.Reason // set only for ContentLocked
}

var adminViews = map[View]bool{
	ViewAdminDashboard: true,
	ViewAdminStudents:  true,
	ViewAdminTrades:    true,
	ViewAdminAnalytics: true,
	ViewAdminRules:     true,
	ViewAdminContent:   true,
	ViewSettings:       true,
}

// featureFor maps gated student views to the feature that unlocks them.
// Views absent from the map carry no tier gate.
var featureFor = map[View]entitlement.Feature{
	ViewAI:      entitlement.FeatureAIAssistant,
	ViewJournal: entitlement.FeatureTradeJournal,
	ViewTodos:   entitlement.FeatureTodoList,
	ViewCourses: entitlement.FeatureCourseCurriculum,
	ViewLesson:  entitlement.FeatureCourseCurriculum,
}

// IsAdminView reports whether v belongs to the admin namespace
func IsAdminView(v View) bool {
	return adminViews[v]
}

// InitialView is the screen an account lands on right after login, chosen
// purely from role.
func InitialView(id entitlement.Identity) View {
	if id.Role == models.RoleAdmin {
		return ViewAdminDashboard
	}
	return ViewDashboard
}

// Resolve decides what a navigation request renders. It is a pure function
// of the requested view and the identity: it re-runs on every request so a
// tier change made by an admin mid-session takes effect on the student's
// next click, and repeating a request always yields the same resolution.
func Resolve(requested View, id entitlement.Identity) Resolution {
	// Admin namespace is guarded by role before any tier logic runs. The
	// interstitial is shown in place, independent of the menu hiding
	// these entries from students.
	if IsAdminView(requested) {
		if id.Role != models.RoleAdmin {
			return Resolution{Next: requested, Content: ContentUnauthorized}
		}
		return Resolution{Next: requested, Content: ContentFeature}
	}

	if requested == ViewDashboard && id.Role != models.RoleAdmin {
		// An account under review sees the waiting screen in the
		// dashboard slot; the view itself does not move.
		if id.ReviewStatus == models.ReviewPending {
			return Resolution{Next: ViewDashboard, Content: ContentUnderReview}
		}
		// Free accounts have no dashboard; they live in the community.
		if !id.Tier.IsPaid() {
			return Resolution{Next: ViewCommunity, Content: ContentFeature}
		}
	}

	feature, gated := featureFor[requested]
	if !gated {
		return Resolution{Next: requested, Content: ContentFeature}
	}

	decision := entitlement.Evaluate(id, feature)
	if !decision.Allowed {
		return Resolution{Next: requested, Content: ContentLocked, Reason: decision.Reason}
	}
	return Resolution{Next: requested, Content: ContentFeature}
}

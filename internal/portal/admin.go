package portal

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/intake"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// renderAdminView renders the admin screens. Role enforcement already
// happened in the view router; handlers here only fetch and display.
func (p *Portal) renderAdminView(w http.ResponseWriter, r *http.Request, v View) {
	switch v {
	case ViewAdminDashboard:
		p.renderAdminDashboard(w, r)
	case ViewAdminStudents:
		students, err := database.GetStudents()
		if err != nil {
			log.Printf("[ADMIN] Loading students: %v", err)
		}
		p.renderTemplate(w, r, "admin-students.html", "Students", map[string]interface{}{
			"Students": students,
			"Tiers":    []string{"free", "foundation", "professional", "elite"},
		})
	case ViewAdminTrades:
		trades, err := database.GetAllTrades(100)
		if err != nil {
			log.Printf("[ADMIN] Loading trades: %v", err)
		}
		p.renderTemplate(w, r, "admin-trades.html", "All Trades", map[string]interface{}{
			"Trades": trades,
		})
	case ViewAdminAnalytics:
		p.renderAdminAnalytics(w, r)
	case ViewAdminRules:
		rules, err := database.GetTradingRules()
		if err != nil {
			log.Printf("[ADMIN] Loading rules: %v", err)
		}
		violations, err := database.GetViolationCountsByRule()
		if err != nil {
			log.Printf("[ADMIN] Loading violation counts: %v", err)
		}
		p.renderTemplate(w, r, "admin-rules.html", "Trading Rules", map[string]interface{}{
			"Rules":      rules,
			"Violations": violations,
		})
	case ViewAdminContent:
		courses, err := database.GetCourses()
		if err != nil {
			log.Printf("[ADMIN] Loading courses: %v", err)
		}
		links, err := database.GetCommunityLinks(true)
		if err != nil {
			log.Printf("[ADMIN] Loading links: %v", err)
		}
		p.renderTemplate(w, r, "admin-content.html", "Content", map[string]interface{}{
			"Courses": courses,
			"Links":   links,
		})
	case ViewSettings:
		plans, err := database.GetPlans()
		if err != nil {
			log.Printf("[ADMIN] Loading plans: %v", err)
		}
		p.renderTemplate(w, r, "settings.html", "Settings", map[string]interface{}{
			"Plans": plans,
		})
	}
}

func (p *Portal) renderAdminDashboard(w http.ResponseWriter, r *http.Request) {
	snap := p.dashboard.Load(r.Context())

	p.renderTemplate(w, r, "admin-dashboard.html", "Admin Dashboard", map[string]interface{}{
		"Snapshot":     snap,
		"IsRefreshing": p.dashboard.IsRefreshing(),
	})
}

func (p *Portal) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if user == nil || !user.IsAdmin() {
		http.Error(w, "Unauthorized", http.StatusForbidden)
		return
	}
	p.dashboard.Refresh(r.Context())
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (p *Portal) renderAdminAnalytics(w http.ResponseWriter, r *http.Request) {
	trend, err := database.GetMonthlyRevenue()
	if err != nil {
		log.Printf("[ADMIN] Loading revenue trend: %v", err)
	}
	enrollments, err := database.GetEnrollmentCounts()
	if err != nil {
		log.Printf("[ADMIN] Loading enrollment counts: %v", err)
	}
	penalties, err := database.GetPenaltyPointsByStudent()
	if err != nil {
		log.Printf("[ADMIN] Loading penalty points: %v", err)
	}
	total, err := database.GetTotalRevenue()
	if err != nil {
		log.Printf("[ADMIN] Loading total revenue: %v", err)
		total = decimal.Zero
	}

	p.renderTemplate(w, r, "admin-analytics.html", "Analytics", map[string]interface{}{
		"RevenueTrend": trend,
		"TotalRevenue": total.StringFixed(2),
		"Enrollments":  enrollments,
		"Penalties":    penalties,
	})
}

func (p *Portal) requireAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := currentUser(r)
	if !ok || !user.IsAdmin() {
		http.Error(w, "Unauthorized", http.StatusForbidden)
		return nil, false
	}
	return user, true
}

// handleUpdateStudentTier is the manual override, separate from the
// application decision flow.
func (p *Portal) handleUpdateStudentTier(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	studentID := chi.URLParam(r, "id")
	tier := models.ParseTier(r.FormValue("tier"))

	if err := database.UpdateUserTier(studentID, tier, models.ReviewNone); err != nil {
		log.Printf("[ADMIN] Updating tier for %s: %v", studentID, err)
		http.Error(w, "Failed to update tier", http.StatusInternalServerError)
		return
	}
	log.Printf("[ADMIN] Student %s set to tier %s", studentID, tier)
	http.Redirect(w, r, "/admin/students", http.StatusSeeOther)
}

func (p *Portal) handlePromoteStudent(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	studentID := chi.URLParam(r, "id")
	if err := database.PromoteToAdmin(studentID); err != nil {
		log.Printf("[ADMIN] Promoting %s: %v", studentID, err)
		http.Error(w, "Failed to promote student", http.StatusInternalServerError)
		return
	}
	log.Printf("[ADMIN] Student %s promoted to admin", studentID)
	http.Redirect(w, r, "/admin/students", http.StatusSeeOther)
}

// handleUpdatePlan edits pricing copy in place. Tier assignments already
// made are not touched.
func (p *Portal) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	plan, err := database.GetPlanByTier(models.ParseTier(chi.URLParam(r, "tier")))
	if err != nil {
		http.Error(w, "Plan not found", http.StatusNotFound)
		return
	}

	if raw := strings.TrimSpace(r.FormValue("price_usd")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			http.Error(w, "Invalid price", http.StatusBadRequest)
			return
		}
		plan.PriceUSD = price
	}
	if blurb := strings.TrimSpace(r.FormValue("blurb")); blurb != "" {
		plan.Blurb = blurb
	}
	plan.RequiresReview = r.FormValue("requires_review") == "true"

	if err := database.UpdatePlan(plan); err != nil {
		log.Printf("[ADMIN] Updating plan %s: %v", plan.Tier, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
}

func (p *Portal) handleDecideApplication(w http.ResponseWriter, r *http.Request) {
	admin, ok := p.requireAdmin(w, r)
	if !ok {
		return
	}

	applicationID := chi.URLParam(r, "id")
	outcome := intake.Outcome(r.FormValue("outcome"))
	if outcome != intake.OutcomeApprove && outcome != intake.OutcomeReject {
		http.Error(w, "Outcome must be approve or reject", http.StatusBadRequest)
		return
	}

	if err := p.intake.Decide(applicationID, outcome, admin.ID); err != nil {
		if err == intake.ErrAlreadyDecided {
			http.Error(w, "Application already decided", http.StatusConflict)
			return
		}
		log.Printf("[ADMIN] Deciding application %s: %v", applicationID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (p *Portal) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		http.Error(w, "Rule text is required", http.StatusBadRequest)
		return
	}
	position, _ := strconv.Atoi(r.FormValue("position"))

	if _, err := database.CreateTradingRule(text, position); err != nil {
		log.Printf("[ADMIN] Creating rule: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/rules", http.StatusSeeOther)
}

func (p *Portal) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	if err := database.DeleteTradingRule(chi.URLParam(r, "id")); err != nil {
		log.Printf("[ADMIN] Deleting rule: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/rules", http.StatusSeeOther)
}

func (p *Portal) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if _, err := database.CreateCourse(&models.Course{
		Title:        title,
		Description:  r.FormValue("description"),
		TierRequired: models.ParseTier(r.FormValue("tier_required")),
	}); err != nil {
		log.Printf("[ADMIN] Creating course: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/content", http.StatusSeeOther)
}

func (p *Portal) handleCreateCourseModule(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	position, _ := strconv.Atoi(r.FormValue("position"))

	if _, err := database.CreateCourseModule(&models.CourseModule{
		CourseID: chi.URLParam(r, "id"),
		Title:    title,
		Content:  r.FormValue("content"),
		Position: position,
	}); err != nil {
		log.Printf("[ADMIN] Creating course module: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/content", http.StatusSeeOther)
}

func (p *Portal) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	label := strings.TrimSpace(r.FormValue("label"))
	url := strings.TrimSpace(r.FormValue("url"))
	if label == "" || url == "" {
		http.Error(w, "Label and URL are required", http.StatusBadRequest)
		return
	}

	if _, err := database.CreateCommunityLink(&models.CommunityLink{
		Label:       label,
		URL:         url,
		PremiumOnly: r.FormValue("premium") == "true",
	}); err != nil {
		log.Printf("[ADMIN] Creating community link: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/content", http.StatusSeeOther)
}

func (p *Portal) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.requireAdmin(w, r); !ok {
		return
	}

	if err := database.DeleteCommunityLink(chi.URLParam(r, "id")); err != nil {
		log.Printf("[ADMIN] Deleting community link: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/content", http.StatusSeeOther)
}

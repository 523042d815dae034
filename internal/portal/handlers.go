package portal

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/ChartMentor-io/chartmentor/internal/auth"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/entitlement"
	"github.com/ChartMentor-io/chartmentor/internal/intake"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/go-chi/chi/v5"
)

// pathFor maps a view to its URL, for redirects issued by the view router
var pathFor = map[View]string{
	ViewLanding:           "/",
	ViewLogin:             "/login",
	ViewSignup:            "/signup",
	ViewApplicationReview: "/application-review",
	ViewDashboard:         "/dashboard",
	ViewCourses:           "/courses",
	ViewAI:                "/ai",
	ViewJournal:           "/journal",
	ViewTodos:             "/todos",
	ViewCommunity:         "/community",
	ViewAdminDashboard:    "/admin/dashboard",
	ViewAdminStudents:     "/admin/students",
	ViewAdminTrades:       "/admin/trades",
	ViewAdminAnalytics:    "/admin/analytics",
	ViewAdminRules:        "/admin/rules",
	ViewAdminContent:      "/admin/content",
	ViewSettings:          "/admin/settings",
}

// handleView routes every portal page request through Resolve, so locked
// screens, the under-review notice and redirects all come from the same
// decision table.
func (p *Portal) handleView(requested View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		res := Resolve(requested, identity)
		if res.Next != requested {
			http.Redirect(w, r, pathFor[res.Next], http.StatusSeeOther)
			return
		}

		switch res.Content {
		case ContentUnauthorized:
			p.renderTemplate(w, r, "unauthorized.html", "Unauthorized", map[string]interface{}{
				"Requested": string(requested),
			})
		case ContentUnderReview:
			p.renderTemplate(w, r, "under-review.html", "Application Under Review", nil)
		case ContentLocked:
			p.renderLocked(w, r, requested, res.Reason)
		default:
			p.renderFeature(w, r, requested)
		}
	}
}

func (p *Portal) renderLocked(w http.ResponseWriter, r *http.Request, requested View, reason entitlement.Reason) {
	message := "Upgrade your plan to unlock this feature."
	if requested == ViewAI {
		message = "The AI trade assistant is available on the Professional tier and above."
	} else if reason == entitlement.ReasonTierTooLow {
		message = "This feature is available on the Foundation tier and above."
	}
	if reason == entitlement.ReasonPendingApproval {
		message = "Your application is still under review. You will get access once it is approved."
	}

	plans, err := database.GetPlans()
	if err != nil {
		log.Printf("[PORTAL] Loading plans for lock screen: %v", err)
	}

	p.renderTemplate(w, r, "locked.html", "Locked", map[string]interface{}{
		"Requested": string(requested),
		"Reason":    string(reason),
		"Message":   message,
		"Plans":     plans,
	})
}

// renderFeature loads the data a resolved view needs and renders it
func (p *Portal) renderFeature(w http.ResponseWriter, r *http.Request, v View) {
	user, _ := currentUser(r)

	switch v {
	case ViewDashboard:
		p.renderStudentDashboard(w, r, user)
	case ViewCourses:
		courses, err := database.GetCourses()
		if err != nil {
			log.Printf("[PORTAL] Loading courses: %v", err)
		}
		p.renderTemplate(w, r, "courses.html", "Courses", map[string]interface{}{
			"Courses": courses,
		})
	case ViewLesson:
		p.renderLesson(w, r)
	case ViewAI:
		rules, err := database.GetTradingRules()
		if err != nil {
			log.Printf("[PORTAL] Loading rules: %v", err)
		}
		p.renderTemplate(w, r, "ai.html", "Trade Assistant", map[string]interface{}{
			"Rules": rules,
		})
	case ViewJournal:
		trades, err := p.journal.List(user.ID)
		if err != nil {
			log.Printf("[PORTAL] Loading journal for %s: %v", user.ID, err)
		}
		p.renderTemplate(w, r, "journal.html", "Trade Journal", map[string]interface{}{
			"Trades": trades,
		})
	case ViewTodos:
		todos, err := database.GetUserTodos(user.ID)
		if err != nil {
			log.Printf("[PORTAL] Loading todos for %s: %v", user.ID, err)
		}
		p.renderTemplate(w, r, "todos.html", "Checklist", map[string]interface{}{
			"Todos": todos,
		})
	case ViewCommunity:
		p.renderCommunity(w, r, user)
	case ViewAdminDashboard, ViewAdminStudents, ViewAdminTrades, ViewAdminAnalytics,
		ViewAdminRules, ViewAdminContent, ViewSettings:
		p.renderAdminView(w, r, v)
	default:
		p.renderTemplate(w, r, "404.html", "Not Found", nil)
	}
}

func (p *Portal) renderStudentDashboard(w http.ResponseWriter, r *http.Request, user *models.User) {
	trades, err := p.journal.List(user.ID)
	if err != nil {
		log.Printf("[DASHBOARD] Loading trades for %s: %v", user.ID, err)
	}
	todos, err := database.GetUserTodos(user.ID)
	if err != nil {
		log.Printf("[DASHBOARD] Loading todos for %s: %v", user.ID, err)
	}

	open := 0
	for _, td := range todos {
		if !td.Done {
			open++
		}
	}

	p.renderTemplate(w, r, "dashboard.html", "Dashboard", map[string]interface{}{
		"TradeCount":   len(trades),
		"RecentTrades": firstTrades(trades, 5),
		"OpenTodos":    open,
		"Tier":         string(user.Tier),
	})
}

func (p *Portal) renderLesson(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")
	modules, err := database.GetCourseModules(courseID)
	if err != nil {
		log.Printf("[PORTAL] Loading modules for course %s: %v", courseID, err)
		p.renderTemplate(w, r, "404.html", "Not Found", nil)
		return
	}
	p.renderTemplate(w, r, "lesson.html", "Lesson", map[string]interface{}{
		"CourseID": courseID,
		"Modules":  modules,
	})
}

func (p *Portal) renderCommunity(w http.ResponseWriter, r *http.Request, user *models.User) {
	identity := entitlement.IdentityOf(user)
	premium := entitlement.Evaluate(identity, entitlement.FeatureCommunityPremium).Allowed

	links, err := database.GetCommunityLinks(premium)
	if err != nil {
		log.Printf("[PORTAL] Loading community links: %v", err)
	}
	p.renderTemplate(w, r, "community.html", "Community", map[string]interface{}{
		"Links":          links,
		"PremiumVisible": premium,
	})
}

func firstTrades(trades []*models.Trade, n int) []*models.Trade {
	if len(trades) < n {
		return trades
	}
	return trades[:n]
}

// --- Public pages ---

func (p *Portal) handleLanding(w http.ResponseWriter, r *http.Request) {
	plans, err := database.GetPlans()
	if err != nil {
		log.Printf("[PORTAL] Loading plans for landing: %v", err)
	}
	p.renderTemplate(w, r, "landing.html", "ChartMentor", map[string]interface{}{
		"Plans": plans,
	})
}

func (p *Portal) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.renderTemplate(w, r, "login.html", "Login", map[string]interface{}{})
}

func (p *Portal) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	log.Printf("[PORTAL] Login attempt for email: %s", email)

	user, err := auth.Authenticate(email, password)
	if err != nil {
		log.Printf("[PORTAL] Login failed for %s: %v", email, err)
		p.renderTemplate(w, r, "login.html", "Login", map[string]interface{}{"Error": "Invalid email or password", "Email": email})
		return
	}

	token, err := auth.CreateSession(user.ID)
	if err != nil {
		log.Printf("ERROR: Session creation failed for user %s: %v", user.ID, err)
		p.renderTemplate(w, r, "login.html", "Login", map[string]interface{}{"Error": "Failed to create session.", "Email": email})
		return
	}

	p.setSessionCookie(w, token)

	// Landing screen is chosen from role alone
	next := InitialView(entitlement.IdentityOf(user))
	http.Redirect(w, r, pathFor[next], http.StatusSeeOther)
}

func (p *Portal) handleSignup(w http.ResponseWriter, r *http.Request) {
	plans, err := database.GetPlans()
	if err != nil {
		log.Printf("[PORTAL] Loading plans for signup: %v", err)
	}
	p.renderTemplate(w, r, "signup.html", "Apply", map[string]interface{}{
		"Plans":                plans,
		"PasswordRequirements": auth.GetPasswordRequirements(),
	})
}

func (p *Portal) handleSignupPost(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	fullName := r.FormValue("full_name")
	password := r.FormValue("password")
	tier := models.ParseTier(r.FormValue("tier"))

	log.Printf("[INTAKE] Application submitted for email: %s, tier: %s", email, tier)

	data := map[string]interface{}{
		"Email":                email,
		"FullName":             fullName,
		"PasswordRequirements": auth.GetPasswordRequirements(),
	}
	if plans, err := database.GetPlans(); err == nil {
		data["Plans"] = plans
	}

	if !auth.ValidatePassword(password) {
		data["Error"] = "Password does not meet the requirements"
		p.renderTemplate(w, r, "signup.html", "Apply", data)
		return
	}

	result, err := p.intake.Submit(intake.SubmitInput{
		FullName:      fullName,
		Email:         email,
		Password:      password,
		RequestedTier: tier,
	})
	if err != nil {
		log.Printf("[INTAKE] Submission failed for %s: %v", email, err)
		if err == auth.ErrEmailTaken || strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			data["Error"] = "This email is already registered."
		} else {
			data["Error"] = "Application failed. Please check the form and try again."
		}
		p.renderTemplate(w, r, "signup.html", "Apply", data)
		return
	}

	// Applicants are logged straight in; no separate login step
	p.setSessionCookie(w, result.SessionToken)

	if result.Application != nil {
		http.Redirect(w, r, pathFor[ViewApplicationReview], http.StatusSeeOther)
		return
	}
	next := InitialView(entitlement.IdentityOf(result.User))
	http.Redirect(w, r, pathFor[next], http.StatusSeeOther)
}

func (p *Portal) handleApplicationReview(w http.ResponseWriter, r *http.Request) {
	p.renderTemplate(w, r, "application-review.html", "Application Received", nil)
}

func (p *Portal) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session")
	if err == nil {
		auth.DeleteSession(cookie.Value)
	}
	p.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- Journal ---

func (p *Portal) requireFeature(w http.ResponseWriter, r *http.Request, f entitlement.Feature) (*models.User, bool) {
	user, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	if !entitlement.Evaluate(entitlement.IdentityOf(user), f).Allowed {
		http.Error(w, "Feature not available on your plan", http.StatusForbidden)
		return nil, false
	}
	return user, true
}

func (p *Portal) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureTradeJournal)
	if !ok {
		return
	}

	entry, err := parseTradeForm(r, user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := p.journal.Record(entry); err != nil {
		log.Printf("[JOURNAL] Recording trade for %s: %v", user.ID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/journal", http.StatusSeeOther)
}

func parseTradeForm(r *http.Request, userID string) (*models.Trade, error) {
	symbol := strings.ToUpper(strings.TrimSpace(r.FormValue("symbol")))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	direction := models.TradeDirection(r.FormValue("direction"))
	if direction != models.DirectionLong && direction != models.DirectionShort {
		return nil, fmt.Errorf("direction must be long or short")
	}

	entry, err := parseFloat(r.FormValue("entry_price"))
	if err != nil || entry <= 0 {
		return nil, fmt.Errorf("entry price must be a positive number")
	}
	quantity, err := parseFloat(r.FormValue("quantity"))
	if err != nil || quantity <= 0 {
		return nil, fmt.Errorf("quantity must be a positive number")
	}

	trade := &models.Trade{
		UserID:     userID,
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: entry,
		Quantity:   quantity,
		Notes:      r.FormValue("notes"),
	}

	if v := r.FormValue("exit_price"); v != "" {
		exit, err := parseFloat(v)
		if err != nil {
			return nil, fmt.Errorf("exit price must be a number")
		}
		trade.ExitPrice = &exit
		pnl := (exit - trade.EntryPrice) * quantity
		if direction == models.DirectionShort {
			pnl = -pnl
		}
		trade.PnL = &pnl
	}

	return trade, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// maxScreenshotBytes caps the whole multipart upload body
const maxScreenshotBytes = 10 << 20

func (p *Portal) handleUploadScreenshot(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureTradeJournal)
	if !ok {
		return
	}
	tradeID := chi.URLParam(r, "id")

	// MaxBytesReader still guards chunked bodies and lying clients
	if r.ContentLength > maxScreenshotBytes {
		http.Error(w, "Screenshot exceeds the 10MB limit", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxScreenshotBytes)
	file, header, err := r.FormFile("screenshot")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Screenshot exceeds the 10MB limit", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Screenshot file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if _, err := p.journal.AttachScreenshot(r.Context(), user.ID, tradeID, header.Filename, file); err != nil {
		log.Printf("[JOURNAL] Screenshot upload for trade %s: %v", tradeID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/journal", http.StatusSeeOther)
}

func (p *Portal) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureTradeJournal)
	if !ok {
		return
	}
	tradeID := chi.URLParam(r, "id")

	if err := p.journal.Remove(r.Context(), tradeID, user.ID); err != nil {
		log.Printf("[JOURNAL] Deleting trade %s: %v", tradeID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/journal", http.StatusSeeOther)
}

// handleJournalFeed streams journal changes as server-sent events so the
// journal page stays in sync without polling.
func (p *Portal) handleJournalFeed(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureTradeJournal)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := p.journal.Feed().Subscribe()
	defer p.journal.Feed().Unsubscribe(events)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if ev.UserID != user.ID {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: {\"trade_id\": %q}\n\n", ev.Kind, ev.TradeID)
			flusher.Flush()
		}
	}
}

// --- AI assistant ---

func (p *Portal) handleValidateTrade(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureAIAssistant)
	if !ok {
		return
	}
	tradeID := r.FormValue("trade_id")
	if tradeID == "" {
		http.Error(w, "Trade ID is required", http.StatusBadRequest)
		return
	}

	trade, err := p.journal.Review(r.Context(), tradeID, user.ID)
	if err != nil {
		log.Printf("[ASSISTANT] Review of trade %s: %v", tradeID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rules, err := database.GetTradingRules()
	if err != nil {
		log.Printf("[PORTAL] Loading rules: %v", err)
	}
	p.renderTemplate(w, r, "ai.html", "Trade Assistant", map[string]interface{}{
		"Rules":    rules,
		"Reviewed": trade,
	})
}

// --- Todos ---

func (p *Portal) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureTodoList)
	if !ok {
		return
	}
	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}
	if _, err := database.CreateTodo(user.ID, text); err != nil {
		log.Printf("[PORTAL] Creating todo for %s: %v", user.ID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (p *Portal) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureTodoList)
	if !ok {
		return
	}
	todoID := chi.URLParam(r, "id")
	done := r.FormValue("done") == "true"
	if err := database.SetTodoDone(todoID, user.ID, done); err != nil {
		log.Printf("[PORTAL] Toggling todo %s: %v", todoID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (p *Portal) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureTodoList)
	if !ok {
		return
	}
	todoID := chi.URLParam(r, "id")
	if err := database.DeleteTodo(todoID, user.ID); err != nil {
		log.Printf("[PORTAL] Deleting todo %s: %v", todoID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

// --- Courses ---

func (p *Portal) handleEnroll(w http.ResponseWriter, r *http.Request) {
	user, ok := p.requireFeature(w, r, entitlement.FeatureCourseCurriculum)
	if !ok {
		return
	}
	courseID := chi.URLParam(r, "id")
	if err := database.EnrollUser(user.ID, courseID); err != nil {
		log.Printf("[PORTAL] Enrolling %s in course %s: %v", user.ID, courseID, err)
	}
	http.Redirect(w, r, "/courses/"+courseID, http.StatusSeeOther)
}

// --- API tokens ---

func (p *Portal) handleTokens(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	tokens, err := auth.ListTokens(user.ID)
	if err != nil {
		log.Printf("[PORTAL] Listing tokens for %s: %v", user.ID, err)
	}
	p.renderTemplate(w, r, "tokens.html", "API Tokens", map[string]interface{}{
		"Tokens":   tokens,
		"NewToken": r.URL.Query().Get("new_token"),
	})
}

func (p *Portal) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "Token name is required", http.StatusBadRequest)
		return
	}

	token, err := auth.CreateToken(user.ID, name)
	if err != nil {
		log.Printf("Error creating token: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/tokens?new_token="+token.Token, http.StatusSeeOther)
}

func (p *Portal) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	tokenID := chi.URLParam(r, "id")
	if tokenID == "" {
		http.Error(w, "Token ID required", http.StatusBadRequest)
		return
	}

	if err := auth.DeleteToken(user.ID, tokenID); err != nil {
		log.Printf("Error deleting token: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/tokens", http.StatusSeeOther)
}

func (p *Portal) renderTemplate(w http.ResponseWriter, r *http.Request, tmplName string, pageTitle string, data interface{}) {
	ts, ok := p.templates[tmplName]
	if !ok {
		log.Printf("Error: template %s not found", tmplName)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var templateData map[string]interface{}
	if existingMap, ok := data.(map[string]interface{}); ok {
		templateData = existingMap
	} else {
		templateData = map[string]interface{}{}
		if data != nil {
			templateData["Data"] = data
		}
	}

	templateData["ActivePage"] = pageTitle

	if user, ok := currentUser(r); ok {
		templateData["User"] = user
		templateData["IsAdmin"] = user.IsAdmin()
		templateData["Tier"] = string(user.Tier)
		templateData["UnderReview"] = user.ReviewStatus == models.ReviewPending
	}

	if err := ts.ExecuteTemplate(w, "base.html", templateData); err != nil {
		log.Printf("Error rendering template %s: %v", tmplName, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

package portal

import (
	"context"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/auth"
	"github.com/ChartMentor-io/chartmentor/internal/config"
	"github.com/ChartMentor-io/chartmentor/internal/dashboard"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/entitlement"
	"github.com/ChartMentor-io/chartmentor/internal/intake"
	"github.com/ChartMentor-io/chartmentor/internal/journal"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const userContextKey contextKey = "portalUser"

type Portal struct {
	templates map[string]*template.Template
	config    *config.Config
	intake    *intake.Pipeline
	journal   *journal.Service
	dashboard *dashboard.Dashboard
}

func New(cfg *config.Config, pipeline *intake.Pipeline, js *journal.Service, dash *dashboard.Dashboard) (*Portal, error) {
	templates := make(map[string]*template.Template)

	templateDir := "templates/portal"

	pages, err := fs.Glob(os.DirFS(templateDir), "*.html")
	if err != nil {
		log.Printf("Error finding templates: %v", err)
		return nil, err
	}

	for _, page := range pages {
		if page == "base.html" {
			continue
		}

		ts, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, page),
		)
		if err != nil {
			log.Printf("Error parsing template %s: %v", page, err)
			return nil, err
		}
		templates[page] = ts
	}

	log.Printf("Successfully loaded templates")

	if pipeline == nil {
		pipeline = intake.New(nil)
	}
	if js == nil {
		js = journal.NewService(nil, nil, nil)
	}
	if dash == nil {
		dash = dashboard.New(dashboard.DefaultSources())
	}

	return &Portal{
		templates: templates,
		config:    cfg,
		intake:    pipeline,
		journal:   js,
		dashboard: dash,
	}, nil
}

func (p *Portal) Routes() http.Handler {
	r := chi.NewRouter()

	fileServer := http.FileServer(http.Dir("static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// Public routes
	r.Get("/", p.handleLanding)
	r.Get("/login", p.handleLogin)
	r.Post("/login", p.handleLoginPost)
	r.Get("/signup", p.handleSignup)
	r.Post("/signup", p.handleSignupPost)
	r.Get("/logout", p.handleLogout)
	r.Get("/application-review", p.handleApplicationReview)

	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "static/favicon.ico")
	})

	// Student area. Every GET goes through the view router so locked
	// screens and redirects come from one place.
	r.Group(func(r chi.Router) {
		r.Use(p.requireAuth)

		r.Get("/dashboard", p.handleView(ViewDashboard))
		r.Get("/courses", p.handleView(ViewCourses))
		r.Get("/courses/{id}", p.handleView(ViewLesson))
		r.Post("/courses/{id}/enroll", p.handleEnroll)
		r.Get("/ai", p.handleView(ViewAI))
		r.Post("/ai/validate", p.handleValidateTrade)
		r.Get("/journal", p.handleView(ViewJournal))
		r.Post("/journal", p.handleCreateTrade)
		r.Post("/journal/{id}/screenshot", p.handleUploadScreenshot)
		r.Post("/journal/{id}/delete", p.handleDeleteTrade)
		r.Get("/journal/feed", p.handleJournalFeed)
		r.Get("/todos", p.handleView(ViewTodos))
		r.Post("/todos", p.handleCreateTodo)
		r.Post("/todos/{id}/toggle", p.handleToggleTodo)
		r.Post("/todos/{id}/delete", p.handleDeleteTodo)
		r.Get("/community", p.handleView(ViewCommunity))

		// Token management
		r.Route("/tokens", func(r chi.Router) {
			r.Get("/", p.handleTokens)
			r.Post("/create", p.handleCreateToken)
			r.Post("/{id}/delete", p.handleDeleteToken)
		})
	})

	// Admin area. The role check lives in the view router; these routes
	// only add the handlers behind it.
	r.Group(func(r chi.Router) {
		r.Use(p.requireAuth)

		r.Get("/admin/dashboard", p.handleView(ViewAdminDashboard))
		r.Post("/admin/dashboard/refresh", p.handleAdminRefresh)
		r.Get("/admin/students", p.handleView(ViewAdminStudents))
		r.Post("/admin/students/{id}/tier", p.handleUpdateStudentTier)
		r.Post("/admin/students/{id}/promote", p.handlePromoteStudent)
		r.Get("/admin/trades", p.handleView(ViewAdminTrades))
		r.Get("/admin/analytics", p.handleView(ViewAdminAnalytics))
		r.Get("/admin/rules", p.handleView(ViewAdminRules))
		r.Post("/admin/rules", p.handleCreateRule)
		r.Post("/admin/rules/{id}/delete", p.handleDeleteRule)
		r.Get("/admin/content", p.handleView(ViewAdminContent))
		r.Post("/admin/content/courses", p.handleCreateCourse)
		r.Post("/admin/content/courses/{id}/modules", p.handleCreateCourseModule)
		r.Post("/admin/content/links", p.handleCreateLink)
		r.Post("/admin/content/links/{id}/delete", p.handleDeleteLink)
		r.Get("/admin/settings", p.handleView(ViewSettings))
		r.Post("/admin/plans/{tier}", p.handleUpdatePlan)
		r.Post("/admin/applications/{id}/decide", p.handleDecideApplication)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		p.renderTemplate(w, r, "404.html", "Not Found", map[string]interface{}{
			"Path": r.URL.Path,
		})
	})

	return r
}

func (p *Portal) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		userID, err := auth.ValidateSession(cookie.Value)
		if err != nil {
			if err == auth.ErrSessionExpired {
				p.clearSessionCookie(w)
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		user, err := database.GetUserByID(userID)
		if err != nil {
			log.Printf("[PORTAL] Session user %s missing: %v", userID, err)
			p.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (p *Portal) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		Domain:   p.config.Domains.Portal,
		HttpOnly: true,
		Secure:   p.config.Domains.Secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(time.Duration(p.config.Auth.SessionTTLHours) * time.Hour),
	})
}

func (p *Portal) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		Domain:   p.config.Domains.Portal,
		HttpOnly: true,
		Secure:   p.config.Domains.Secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
}

func currentUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	return user, ok
}

func currentIdentity(r *http.Request) (entitlement.Identity, bool) {
	user, ok := currentUser(r)
	if !ok {
		return entitlement.Identity{}, false
	}
	return entitlement.IdentityOf(user), true
}

// Package api is the JSON surface used by programmatic clients: trading
// bots posting journal entries, dashboards reading them, and token
// management for both.
package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/assistant"
	"github.com/ChartMentor-io/chartmentor/internal/auth"
	"github.com/ChartMentor-io/chartmentor/internal/config"
	"github.com/ChartMentor-io/chartmentor/internal/journal"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Api struct {
	Config       config.Config
	Router       *chi.Mux
	tokenManager *auth.TokenManager
	journal      *journal.Service
}

func NewApi(cfg config.Config) (*Api, error) {
	if cfg.Auth.TokenSecret == "" {
		return nil, fmt.Errorf("auth token secret is not configured")
	}

	var validator journal.Validator
	if cfg.Assistant.APIKey != "" {
		validator = assistant.NewClient(
			cfg.Assistant.Endpoint,
			cfg.Assistant.APIKey,
			cfg.Assistant.Model,
			time.Duration(cfg.Assistant.TimeoutSeconds)*time.Second,
		)
	}

	api := &Api{
		Config:       cfg,
		Router:       chi.NewRouter(),
		tokenManager: auth.NewTokenManager(cfg.Auth.TokenSecret),
		journal:      journal.NewService(journal.NewFeed(), nil, validator),
	}

	api.setupRoutes()
	return api, nil
}

// WithJournal swaps the journal service, so both binaries can share one
// feed and one storage client.
func (api *Api) WithJournal(js *journal.Service) *Api {
	api.journal = js
	return api
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://*.local:*", "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/heartbeat", api.Heartbeat)

	// Public routes
	r.Post("/auth/register", api.RegisterHandler)
	r.Post("/auth/login", api.LoginHandler)
	r.Get("/plans", api.ListPlansHandler)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(api.unifiedAuth)

		// Token management
		r.Post("/auth/tokens", api.CreateTokenHandler)
		r.Get("/auth/tokens", api.ListTokensHandler)
		r.Delete("/auth/tokens/{id}", api.DeleteTokenHandler)

		// Journal
		r.Get("/trades", api.ListTradesHandler)
		r.Post("/trades", api.CreateTradeHandler)
		r.Get("/trades/{id}", api.GetTradeHandler)
		r.Delete("/trades/{id}", api.DeleteTradeHandler)
		r.Post("/trades/{id}/validate", api.ValidateTradeHandler)

		// Todos
		r.Get("/todos", api.ListTodosHandler)
		r.Post("/todos", api.CreateTodoHandler)
	})
}

func (api *Api) Serve() {
	// Expired sessions are swept hourly for as long as the API runs
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			if err := auth.CleanupExpiredSessions(); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
			<-ticker.C
		}
	}()

	log.Printf("Starting API server on 0.0.0.0:%d", api.Config.APIPort)
	log.Fatal(http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort), api.Router))
}

func (api *Api) Heartbeat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/auth"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/go-chi/chi/v5"
)

type credentials struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !auth.ValidateEmail(creds.Email) {
		http.Error(w, "Invalid email format", http.StatusBadRequest)
		return
	}
	if !auth.ValidatePassword(creds.Password) {
		http.Error(w, "Password does not meet requirements", http.StatusBadRequest)
		return
	}

	// API signups are free tier only; paid tiers go through the portal
	// application form.
	user, err := auth.Register(creds.FullName, creds.Email, creds.Password, models.RoleStudent, models.TierFree, models.ReviewNone)
	if err != nil {
		if err == auth.ErrEmailTaken {
			http.Error(w, "Email is already registered", http.StatusConflict)
			return
		}
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	user.Password = ""
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := auth.Authenticate(creds.Email, creds.Password)
	if err != nil {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	jwt, err := api.tokenManager.GenerateToken(user, 24*time.Hour)
	if err != nil {
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"token": jwt,
		"tier":  string(user.Tier),
		"role":  string(user.Role),
	})
}

func (api *Api) ListPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := database.GetPlans()
	if err != nil {
		http.Error(w, "Failed to list plans", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(plans)
}

func (api *Api) CreateTokenHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := callerFromContext(r)

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Token name is required", http.StatusBadRequest)
		return
	}

	token, err := auth.CreateToken(user.ID, req.Name)
	if err != nil {
		http.Error(w, "Failed to create token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(token)
}

func (api *Api) ListTokensHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := callerFromContext(r)

	tokens, err := auth.ListTokens(user.ID)
	if err != nil {
		http.Error(w, "Failed to list tokens", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(tokens)
}

func (api *Api) DeleteTokenHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := callerFromContext(r)
	tokenID := chi.URLParam(r, "id")

	if err := auth.DeleteToken(user.ID, tokenID); err != nil {
		http.Error(w, "Failed to delete token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

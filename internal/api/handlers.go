package api

import (
	"encoding/json"
	"net/http"

	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/entitlement"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requireFeature enforces the caller's plan the same way the portal does
func requireFeature(w http.ResponseWriter, r *http.Request, f entitlement.Feature) (*models.User, bool) {
	user, ok := callerFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	decision := entitlement.Evaluate(entitlement.IdentityOf(user), f)
	if !decision.Allowed {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":  "feature not available on your plan",
			"reason": string(decision.Reason),
		})
		return nil, false
	}
	return user, true
}

type tradeRequest struct {
	Symbol     string   `json:"symbol"`
	Direction  string   `json:"direction"`
	EntryPrice float64  `json:"entry_price"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`
	Quantity   float64  `json:"quantity"`
	Notes      string   `json:"notes,omitempty"`
}

func (api *Api) CreateTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireFeature(w, r, entitlement.FeatureTradeJournal)
	if !ok {
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	direction := models.TradeDirection(req.Direction)
	if req.Symbol == "" || req.EntryPrice <= 0 || req.Quantity <= 0 ||
		(direction != models.DirectionLong && direction != models.DirectionShort) {
		writeError(w, http.StatusBadRequest, "symbol, direction (long|short), entry_price and quantity are required")
		return
	}

	trade, err := api.journal.Record(&models.Trade{
		UserID:     user.ID,
		Symbol:     req.Symbol,
		Direction:  direction,
		EntryPrice: req.EntryPrice,
		ExitPrice:  req.ExitPrice,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record trade")
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (api *Api) ListTradesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireFeature(w, r, entitlement.FeatureTradeJournal)
	if !ok {
		return
	}

	trades, err := api.journal.List(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []*models.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (api *Api) GetTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireFeature(w, r, entitlement.FeatureTradeJournal)
	if !ok {
		return
	}

	trade, err := api.journal.Get(chi.URLParam(r, "id"), user.ID)
	if err != nil {
		if err == database.ErrNotFound {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load trade")
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (api *Api) DeleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireFeature(w, r, entitlement.FeatureTradeJournal)
	if !ok {
		return
	}

	if err := api.journal.Remove(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		if err == database.ErrNotFound {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete trade")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ValidateTradeHandler runs the assistant over a journaled trade
func (api *Api) ValidateTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireFeature(w, r, entitlement.FeatureAIAssistant)
	if !ok {
		return
	}

	trade, err := api.journal.Review(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		if err == database.ErrNotFound {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (api *Api) ListTodosHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireFeature(w, r, entitlement.FeatureTodoList)
	if !ok {
		return
	}

	todos, err := database.GetUserTodos(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	if todos == nil {
		todos = []*models.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (api *Api) CreateTodoHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireFeature(w, r, entitlement.FeatureTodoList)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	todo, err := database.CreateTodo(user.ID, req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create todo")
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

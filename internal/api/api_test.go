package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ChartMentor-io/chartmentor/internal/auth"
	"github.com/ChartMentor-io/chartmentor/internal/config"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAPI(t *testing.T) *Api {
	t.Helper()
	path := "test_api.db"
	os.Remove(path)

	cfg := config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = path
	cfg.Auth.TokenSecret = "test-secret"

	require.NoError(t, database.Init(&cfg))
	t.Cleanup(func() {
		database.Close()
		os.Remove(path)
	})

	api, err := NewApi(cfg)
	require.NoError(t, err)
	return api
}

func registerAndLogin(t *testing.T, api *Api, email string, tier models.Tier) string {
	t.Helper()
	_, err := auth.Register("Test Student", email, "Str0ngPass", models.RoleStudent, tier, models.ReviewNone)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"email": email, "password": "Str0ngPass"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])
	return resp["token"]
}

func authedRequest(method, path, token string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHeartbeat(t *testing.T) {
	api := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/heartbeat", nil)
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterAndLoginFlow(t *testing.T) {
	api := setupTestAPI(t)

	body, _ := json.Marshal(map[string]string{
		"full_name": "Ada Trader",
		"email":     "ada@example.com",
		"password":  "Str0ngPass",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, models.TierFree, user.Tier)
	assert.Empty(t, user.Password)

	// Duplicate registration conflicts
	req = httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Wrong password rejected
	bad, _ := json.Marshal(map[string]string{"email": "ada@example.com", "password": "WrongPass1"})
	req = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(bad))
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlansArePublic(t *testing.T) {
	api := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/plans", nil)
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var plans []*models.SubscriptionPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	assert.Len(t, plans, 4)
}

func TestTradesRequireAuth(t *testing.T) {
	api := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/trades", nil)
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFreeTierLockedOutOfJournal(t *testing.T) {
	api := setupTestAPI(t)
	token := registerAndLogin(t, api, "free@example.com", models.TierFree)

	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodGet, "/trades", token, nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tier-too-low", resp["reason"])
}

func TestJournalCRUD(t *testing.T) {
	api := setupTestAPI(t)
	token := registerAndLogin(t, api, "pro@example.com", models.TierProfessional)

	body, _ := json.Marshal(tradeRequest{
		Symbol:     "EURUSD",
		Direction:  "long",
		EntryPrice: 1.0850,
		Quantity:   1.5,
		Notes:      "breakout retest",
	})
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodPost, "/trades", token, body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var trade models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trade))
	require.NotEmpty(t, trade.ID)

	// List
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodGet, "/trades", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []*models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	assert.Len(t, trades, 1)

	// Get
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodGet, "/trades/"+trade.ID, token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Delete
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/trades/"+trade.ID, token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodGet, "/trades/"+trade.ID, token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTradeValidationRejectsBadInput(t *testing.T) {
	api := setupTestAPI(t)
	token := registerAndLogin(t, api, "pro2@example.com", models.TierProfessional)

	for _, body := range []string{
		`{"symbol": "", "direction": "long", "entry_price": 1, "quantity": 1}`,
		`{"symbol": "EURUSD", "direction": "sideways", "entry_price": 1, "quantity": 1}`,
		`{"symbol": "EURUSD", "direction": "long", "entry_price": 0, "quantity": 1}`,
		`not json`,
	} {
		rec := httptest.NewRecorder()
		api.Router.ServeHTTP(rec, authedRequest(http.MethodPost, "/trades", token, []byte(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestAssistantGatedByTier(t *testing.T) {
	api := setupTestAPI(t)
	token := registerAndLogin(t, api, "foundation@example.com", models.TierFoundation)

	// Foundation can journal
	body, _ := json.Marshal(tradeRequest{Symbol: "EURUSD", Direction: "long", EntryPrice: 1.1, Quantity: 1})
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodPost, "/trades", token, body))
	require.Equal(t, http.StatusCreated, rec.Code)
	var trade models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trade))

	// But not call the assistant
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodPost, fmt.Sprintf("/trades/%s/validate", trade.ID), token, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPITokenAuth(t *testing.T) {
	api := setupTestAPI(t)
	jwt := registerAndLogin(t, api, "bot@example.com", models.TierElite)

	// Mint an API token with the JWT
	body, _ := json.Marshal(map[string]string{"name": "trading-bot"})
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodPost, "/auth/tokens", jwt, body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var token models.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.NotEmpty(t, token.Token)

	// Use the API token via X-API-Key
	req := httptest.NewRequest(http.MethodGet, "/trades", nil)
	req.Header.Set("X-API-Key", token.Token)
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Delete it and confirm it stops working
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/auth/tokens/"+token.ID, jwt, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/trades", nil)
	req.Header.Set("X-API-Key", token.Token)
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTodosOverAPI(t *testing.T) {
	api := setupTestAPI(t)
	token := registerAndLogin(t, api, "todos@example.com", models.TierFoundation)

	body, _ := json.Marshal(map[string]string{"text": "Backtest the breakout setup"})
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodPost, "/todos", token, body))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, authedRequest(http.MethodGet, "/todos", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var todos []*models.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todos))
	assert.Len(t, todos, 1)
}

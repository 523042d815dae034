package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)

		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testRules() []*models.TradingRule {
	return []*models.TradingRule{
		{ID: "r1", Text: "Never risk more than 1% per trade", Position: 1},
		{ID: "r2", Text: "Only trade with the daily trend", Position: 2},
	}
}

func TestValidateTradeApproved(t *testing.T) {
	srv := modelServer(t, `{"result": "approved", "explanation": "Risk is 0.5% and aligned with trend."}`, http.StatusOK)
	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	v := c.ValidateTrade(context.Background(), "Long EURUSD, 0.5% risk, daily uptrend", "", testRules())
	assert.Equal(t, models.VerdictApproved, v.Result)
	assert.Contains(t, v.Explanation, "Risk")
}

func TestValidateTradeRejected(t *testing.T) {
	srv := modelServer(t, `{"result": "rejected", "explanation": "Risk exceeds 1%."}`, http.StatusOK)
	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	v := c.ValidateTrade(context.Background(), "Long EURUSD, 5% risk", "", testRules())
	assert.Equal(t, models.VerdictRejected, v.Result)
}

func TestValidateTradeTolerantOfCodeFences(t *testing.T) {
	reply := "Here is my verdict:\n```json\n{\"result\": \"warning\", \"explanation\": \"Trend unclear.\"}\n```"
	srv := modelServer(t, reply, http.StatusOK)
	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	v := c.ValidateTrade(context.Background(), "Short GBPJPY", "", testRules())
	assert.Equal(t, models.VerdictWarning, v.Result)
	assert.Equal(t, "Trend unclear.", v.Explanation)
}

func TestValidateTradeFallsBackOnServerError(t *testing.T) {
	srv := modelServer(t, "", http.StatusInternalServerError)
	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	v := c.ValidateTrade(context.Background(), "Long EURUSD", "", testRules())
	assert.Equal(t, models.VerdictWarning, v.Result)
	assert.Contains(t, v.Explanation, "unavailable")
}

func TestValidateTradeFallsBackOnUnreachableEndpoint(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "test-key", "gpt-4o-mini", time.Second)

	v := c.ValidateTrade(context.Background(), "Long EURUSD", "", testRules())
	assert.Equal(t, models.VerdictWarning, v.Result)
}

func TestValidateTradeFallsBackOnGarbageVerdict(t *testing.T) {
	srv := modelServer(t, `{"result": "maybe", "explanation": "?"}`, http.StatusOK)
	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	v := c.ValidateTrade(context.Background(), "Long EURUSD", "", testRules())
	assert.Equal(t, models.VerdictWarning, v.Result)
}

func TestValidateTradeIncludesImagePart(t *testing.T) {
	var gotParts bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		msgs := raw["messages"].([]any)
		user := msgs[1].(map[string]any)
		_, gotParts = user["content"].([]any)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"result": "approved", "explanation": "ok"}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	c.ValidateTrade(context.Background(), "Long EURUSD", "https://cdn.example.com/chart.png", testRules())
	assert.True(t, gotParts, "image URL should switch the user message to multi-part content")
}

func TestParseVerdictErrors(t *testing.T) {
	_, err := parseVerdict("no json here")
	assert.Error(t, err)

	_, err = parseVerdict(`{"result": "approved"`)
	assert.Error(t, err)
}

// Package assistant validates trade ideas against the mentor's trading rules
// using a chat-completions style model endpoint.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// Verdict is the assistant's judgement on a proposed trade
type Verdict struct {
	Result      models.TradeVerdict `json:"result"`
	Explanation string              `json:"explanation"`
}

// Client talks to the configured model endpoint
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = `You are a trading mentor reviewing a student's trade idea.
Judge the trade against the numbered rules below, in order.
Respond with JSON only: {"result": "approved"|"warning"|"rejected", "explanation": "..."}.
Reject trades that clearly break a rule, warn on partial or ambiguous compliance, approve otherwise.`

// ValidateTrade sends the trade description, optional chart image URL and the
// ordered rule list to the model and parses its verdict. There is no retry:
// any failure falls back to a local warning so the student is never blocked.
func (c *Client) ValidateTrade(ctx context.Context, description, chartURL string, rules []*models.TradingRule) Verdict {
	verdict, err := c.validate(ctx, description, chartURL, rules)
	if err != nil {
		log.Printf("[ASSISTANT] Validation unavailable: %v", err)
		return Verdict{
			Result:      models.VerdictWarning,
			Explanation: "Automatic review is unavailable right now. Check your trade against the rules manually before entering.",
		}
	}
	return verdict
}

func (c *Client) validate(ctx context.Context, description, chartURL string, rules []*models.TradingRule) (Verdict, error) {
	var prompt strings.Builder
	prompt.WriteString("Trading rules:\n")
	for i, r := range rules {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, r.Text)
	}
	prompt.WriteString("\nTrade idea:\n")
	prompt.WriteString(description)

	userContent := any(prompt.String())
	if chartURL != "" {
		userContent = []contentPart{
			{Type: "text", Text: prompt.String()},
			{Type: "image_url", ImageURL: &imageURL{URL: chartURL}},
		}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("call model endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("model endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Verdict{}, fmt.Errorf("decode response: %w", err)
	}
	if cr.Error != nil {
		return Verdict{}, fmt.Errorf("model error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return Verdict{}, fmt.Errorf("empty response from model")
	}

	return parseVerdict(cr.Choices[0].Message.Content)
}

// parseVerdict pulls the JSON verdict out of the model's reply, tolerating
// code fences and surrounding prose.
func parseVerdict(content string) (Verdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Verdict{}, fmt.Errorf("no JSON object in model reply")
	}

	var v Verdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}

	switch v.Result {
	case models.VerdictApproved, models.VerdictWarning, models.VerdictRejected:
	default:
		return Verdict{}, fmt.Errorf("unknown verdict %q", v.Result)
	}
	if v.Explanation == "" {
		v.Explanation = "No explanation provided."
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

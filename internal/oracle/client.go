// Package oracle implements the scoring-oracle client: an OpenAI-style
// chat-completions endpoint that judges how a news item moves a prediction
// market's probability. The response content is a JSON object with
// sentiment, confidence, and reasoning; Markdown code fences around it are
// stripped defensively before parsing.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/Wad-Law/ingestor/internal/config"
)

// Signal is the oracle's judgment on one (news, market) pair.
type Signal struct {
	Sentiment  string  `json:"sentiment"`  // "Positive", "Negative", "Neutral"
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Reasoning  string  `json:"reasoning"`
}

// Scorer is the contract the analyst depends on; tests substitute fakes.
type Scorer interface {
	Analyze(ctx context.Context, newsTitle, marketQuestion string) (Signal, error)
}

// Client calls a chat-completions API and parses the JSON judgment out of
// the assistant message.
type Client struct {
	http   *resty.Client
	model  string
	logger *slog.Logger
}

// NewClient creates an oracle client from config.
func NewClient(cfg config.OracleConfig, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		http:   httpClient,
		model:  cfg.Model,
		logger: logger.With("component", "oracle"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze submits one scoring query and returns the parsed signal.
func (c *Client) Analyze(ctx context.Context, newsTitle, marketQuestion string) (Signal, error) {
	prompt := fmt.Sprintf(
		"You are a financial analyst. Analyze the following news title in the context of the prediction market question.\n"+
			"News: %q\n"+
			"Market Question: %q\n\n"+
			"Determine if the news increases the probability of the outcome 'Yes', decreases it, or is neutral.\n"+
			"Output JSON with fields: 'sentiment' (Positive/Negative/Neutral), 'confidence' (0.0-1.0), and 'reasoning'.\n"+
			"'Positive' means 'Yes' is more likely. 'Negative' means 'No' is more likely (or 'Yes' is less likely).",
		newsTitle, marketQuestion)

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant that outputs JSON."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	}

	var parsed chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&parsed).
		Post("/chat/completions")
	if err != nil {
		return Signal{}, fmt.Errorf("oracle request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Signal{}, fmt.Errorf("oracle: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(parsed.Choices) == 0 {
		return Signal{}, fmt.Errorf("oracle: no choices in response")
	}

	return ParseSignal(parsed.Choices[0].Message.Content)
}

// ParseSignal extracts a Signal from assistant message content, tolerating
// Markdown code fences around the JSON object.
func ParseSignal(content string) (Signal, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var sig Signal
	if err := json.Unmarshal([]byte(clean), &sig); err != nil {
		return Signal{}, fmt.Errorf("parse oracle JSON %q: %w", clean, err)
	}
	return sig, nil
}

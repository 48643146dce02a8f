// Package agent talks to the hosted LLM that reasons about casts.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"farcaster-trader/internal/config"
)

const anthropicVersion = "2023-06-01"

// SystemPrompt frames the collaborator as a conservative trading analyst.
const SystemPrompt = `You analyze Farcaster messages and decide whether they express an intent to trade a crypto asset on Polygon.

For each message:
1. Decide whether it contains a trading intent (buy or sell a token).
2. If it does, determine the action, the token symbol and the amount if one is given.
3. Never propose a trade above the stated limit.

Trading style:
- Conservative: do not trade unless clearly instructed.
- Precise: follow the message exactly.
- Safe: always respect the trade limit.
- Transparent: explain the decision in the reason field.

Examples:
"I think ETH is going up, buy some" -> buy ETH worth the limit in native USDC.
"Sell my MATIC" -> sell MATIC worth the limit for native USDC.
"Nice weather today" -> no trade.`

var ErrEmptyReply = errors.New("agent: empty reply")

// Collaborator turns one prompt into one text reply.
type Collaborator interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// Client calls the Anthropic Messages API.
type Client struct {
	cfg  config.AgentConfig
	http *http.Client
}

func New(cfg config.AgentConfig) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Send posts prompt as a single user turn and returns the concatenated text
// blocks of the reply.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    SystemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read agent response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode agent response: %w", err)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyReply
	}
	return sb.String(), nil
}

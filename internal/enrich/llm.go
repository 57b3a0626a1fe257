package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/slidenotes/internal/failsoft"
	"github.com/dgallion1/slidenotes/internal/retry"
)

const (
	DefaultModel       = "deepseek-ai/DeepSeek-V3.2"
	DefaultChatURL     = "https://api.siliconflow.cn/v1/chat/completions"
	DefaultTemperature = 0.4
	DefaultTimeout     = 60 * time.Second
)

var errNoAPIKey = errors.New("no API key configured")

// Completer returns a completion for prompt, or a fallback string when the
// model cannot be reached. It never fails.
type Completer interface {
	Complete(ctx context.Context, prompt string) failsoft.Result[string]
}

// ChatConfig configures an OpenAI-compatible chat completions endpoint.
type ChatConfig struct {
	URL         string // Full chat/completions URL
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	Locale      string
}

// ChatClient calls an OpenAI-compatible chat completions API.
type ChatClient struct {
	cfg        ChatConfig
	httpClient *http.Client
	policy     retry.Policy
	stats      *LLMStats
}

func NewChatClient(cfg ChatConfig, stats *LLMStats, log *slog.Logger) *ChatClient {
	if cfg.URL == "" {
		cfg.URL = DefaultChatURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &ChatClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		policy:     retry.Default(log),
		stats:      stats,
	}
}

// WithRetryPolicy overrides the retry policy, mainly for tests.
func (c *ChatClient) WithRetryPolicy(p retry.Policy) *ChatClient {
	c.policy = p
	return c
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
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete retries transient failures and degrades to Fallback on anything
// else, including a missing API key.
func (c *ChatClient) Complete(ctx context.Context, prompt string) failsoft.Result[string] {
	fallback := Fallback(c.cfg.Locale, prompt)
	if c.cfg.APIKey == "" {
		return failsoft.Degrade(fallback, errNoAPIKey.Error())
	}

	start := time.Now()
	var reply string
	err := c.policy.Do(ctx, "complete", func(ctx context.Context) error {
		var err error
		reply, err = c.chat(ctx, prompt)
		return err
	})
	c.stats.Record(time.Since(start), err != nil)
	if err != nil {
		return failsoft.Degrade(fallback, err.Error())
	}
	return failsoft.OK(reply)
}

func (c *ChatClient) chat(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(c.cfg.Locale)},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if err := retry.FromStatus(resp.StatusCode, respBody); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat api status %d: %s", resp.StatusCode, retry.Truncate(string(respBody), 200))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("chat error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from chat api")
	}
	reply := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("empty completion")
	}
	return reply, nil
}

// Close releases resources.
func (c *ChatClient) Close() {
	c.httpClient.CloseIdleConnections()
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/slidenotes/internal/retry"
)

// OpenAIConfig configures an OpenAI-compatible /embeddings endpoint.
type OpenAIConfig struct {
	BaseURL   string // e.g. https://api.openai.com/v1
	APIKey    string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// OpenAIClient calls an OpenAI-compatible embeddings API and normalises the
// returned vectors.
type OpenAIClient struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	policy     retry.Policy
	guard      dimensionGuard
}

func NewOpenAIClient(cfg OpenAIConfig, log *slog.Logger) *OpenAIClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		policy:     retry.Default(log),
	}
}

// WithRetryPolicy overrides the retry policy, mainly for tests.
func (c *OpenAIClient) WithRetryPolicy(p retry.Policy) *OpenAIClient {
	c.policy = p
	return c
}

func (c *OpenAIClient) Name() string { return "openai:" + c.cfg.Model }

func (c *OpenAIClient) Dimension() int { return c.guard.get() }

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))
		var batch [][]float32
		err := c.policy.Do(ctx, "embed", func(ctx context.Context) error {
			var err error
			batch, err = c.embedBatch(ctx, texts[start:end])
			return err
		})
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	if err := c.guard.check(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OpenAIClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: nonEmpty(texts), Model: c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embeddings api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := retry.FromStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings api status %d: %s", resp.StatusCode, retry.Truncate(string(respBody), 200))
	}

	var apiResp embeddingResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("embeddings error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings api returned %d vectors for %d inputs", len(apiResp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range apiResp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vecs[d.Index] != nil {
			return nil, fmt.Errorf("embeddings api returned bad index %d", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		vecs[d.Index] = Normalize(d.Embedding)
	}
	return vecs, nil
}

// nonEmpty swaps blank inputs for a single space. Embedding endpoints reject
// empty strings, and a blank slide must not fail the whole batch.
func nonEmpty(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			t = " "
		}
		out[i] = t
	}
	return out
}

// Close releases resources.
func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}

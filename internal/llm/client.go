package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/careloop/server/pkg/api"
)

// Client is a typed HTTP client for an OpenAI-compatible inference server.
// It owns the retry/backoff policy for generation calls; callers treat an
// error from Generate as terminal for the current request.
type Client struct {
	baseURL    string
	model      string
	retry      RetryPolicy
	httpClient *http.Client
}

// New creates a new Client with the default retry policy.
func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    baseURL,
		model:      model,
		retry:      DefaultRetryPolicy(),
		httpClient: &http.Client{},
	}
}

// WithRetryPolicy overrides the retry policy.
func (c *Client) WithRetryPolicy(p RetryPolicy) *Client {
	c.retry = p
	return c
}

// BaseURL returns the inference server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate sends a single-turn chat completion and returns the assistant text,
// trimmed of surrounding whitespace. maxTokens <= 0 means no cap. Retries on
// transient failures per the client's retry policy; the returned error means
// the policy is exhausted.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := &api.ChatCompletionRequest{
		Model:    c.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}

	var text string
	err := c.retry.Do(ctx, func() error {
		resp, err := c.chatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty response from model")
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return text, nil
}

// chatCompletion sends a non-streaming chat completion request.
func (c *Client) chatCompletion(ctx context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("inference server returned %d: %s", resp.StatusCode, string(respBody))
		if retryableStatus(resp.StatusCode) {
			return nil, err
		}
		return nil, Permanent(err)
	}

	var result api.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// Embed calls the inference server's /v1/embeddings endpoint and returns a
// normalized vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req := api.EmbeddingRequest{Input: text, Model: "embedding"}
	body, _ := json.Marshal(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result api.EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	vec := result.Data[0].Embedding
	normalizeVector(vec)
	return vec, nil
}

// Health checks if the inference server is healthy.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// retryableStatus reports whether an HTTP status is worth retrying.
// 429 and 5xx are transient; other 4xx are caller errors.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func normalizeVector(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sum))
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

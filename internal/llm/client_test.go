package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/careloop/server/pkg/api"
)

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func completionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeCompletion(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(api.ChatCompletionResponse{
		Choices: []api.Choice{{Message: api.Message{Role: "assistant", Content: content}}},
	})
}

func TestGenerateTrimsWhitespace(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeCompletion(w, "  an answer \n")
	})

	c := New(srv.URL, "test-model").WithRetryPolicy(fastRetry(1))
	got, err := c.Generate(context.Background(), "hello", 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "an answer" {
		t.Errorf("Generate = %q, want %q", got, "an answer")
	}
}

func TestGenerateSendsMaxTokens(t *testing.T) {
	var gotMax atomic.Int64
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxTokens != nil {
			gotMax.Store(int64(*req.MaxTokens))
		}
		writeCompletion(w, "ok")
	})

	c := New(srv.URL, "test-model").WithRetryPolicy(fastRetry(1))
	if _, err := c.Generate(context.Background(), "hello", 1250); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if gotMax.Load() != 1250 {
		t.Errorf("max_tokens = %d, want 1250", gotMax.Load())
	}
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeCompletion(w, "finally")
	})

	c := New(srv.URL, "test-model").WithRetryPolicy(fastRetry(5))
	got, err := c.Generate(context.Background(), "hello", 0)
	if err != nil {
		t.Fatalf("Generate failed after retries: %v", err)
	}
	if got != "finally" {
		t.Errorf("Generate = %q, want %q", got, "finally")
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	c := New(srv.URL, "test-model").WithRetryPolicy(fastRetry(5))
	if _, err := c.Generate(context.Background(), "hello", 0); err == nil {
		t.Fatal("expected error on 400")
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestGenerateExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int64
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := New(srv.URL, "test-model").WithRetryPolicy(fastRetry(3))
	if _, err := c.Generate(context.Background(), "hello", 0); err == nil {
		t.Fatal("expected terminal error after exhausted retries")
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestEmbedNormalizes(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.EmbeddingResponse{
			Data: []api.EmbeddingData{{Embedding: []float32{3, 4}}},
		})
	})

	c := New(srv.URL, "test-model")
	vec, err := c.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("embedding norm² = %f, want 1.0", sum)
	}
}

func TestHealth(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	c := New(srv.URL, "test-model")
	if c.BaseURL() != srv.URL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL(), srv.URL)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health failed against a healthy server: %v", err)
	}
}

func TestHealthReportsUnhealthyServer(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c := New(srv.URL, "test-model")
	if err := c.Health(context.Background()); err == nil {
		t.Error("expected error from unhealthy server")
	}
}

func TestRetryPolicyContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Minute}
	err := p.Do(ctx, func() error { return errors.New("transient") })
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestRetryPolicyPermanentError(t *testing.T) {
	var calls int
	p := fastRetry(5)
	err := p.Do(context.Background(), func() error {
		calls++
		return Permanent(errors.New("bad request"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

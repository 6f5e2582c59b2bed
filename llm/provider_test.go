package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"ollama", "*llm.ollamaProvider"},
		{"lmstudio", "*llm.client"},
		{"openrouter", "*llm.client"},
		{"openai", "*llm.client"},
		{"groq", "*llm.client"},
		{"xai", "*llm.client"},
		{"gemini", "*llm.client"},
		{"custom", "*llm.client"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, Model: "test-model"})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			if got := fmt.Sprintf("%T", p); got != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, got, tt.wantType)
			}
		})
	}
}

func TestNewProviderErrors(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"", "llm provider not specified"},
		{"doesnotexist", "unknown llm provider: doesnotexist"},
	}
	for _, tt := range tests {
		_, err := NewProvider(Config{Provider: tt.provider})
		if err == nil || err.Error() != tt.want {
			t.Errorf("NewProvider(%q) error = %v, want %q", tt.provider, err, tt.want)
		}
	}
}

func clientOf(t *testing.T, p Provider) *client {
	t.Helper()
	switch v := p.(type) {
	case *client:
		return v
	case *ollamaProvider:
		return v.client
	}
	t.Fatalf("unexpected provider type %T", p)
	return nil
}

// TestDefaults verifies that empty BaseURL and Model take each preset's
// defaults while explicit values are preserved.
func TestDefaults(t *testing.T) {
	tests := []struct {
		provider   string
		wantURL    string
		wantPrefix string
		wantModel  string
	}{
		{"ollama", "http://localhost:11434", "/v1", ""},
		{"lmstudio", "http://localhost:1234", "/v1", ""},
		{"openrouter", "https://openrouter.ai/api", "/v1", ""},
		{"groq", "https://api.groq.com/openai", "/v1", "llama-3.3-70b-versatile"},
		{"gemini", "https://generativelanguage.googleapis.com/v1beta/openai", "", "gemini-2.5-flash"},
		{"custom", "", "/v1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider})
			if err != nil {
				t.Fatal(err)
			}
			c := clientOf(t, p)
			if c.cfg.BaseURL != tt.wantURL || c.pathPrefix != tt.wantPrefix || c.cfg.Model != tt.wantModel {
				t.Errorf("got url=%q prefix=%q model=%q", c.cfg.BaseURL, c.pathPrefix, c.cfg.Model)
			}
		})
	}

	p, _ := NewProvider(Config{Provider: "groq", BaseURL: "http://my-server:9999", Model: "m", APIKey: "sk-1"})
	c := clientOf(t, p)
	if c.cfg.BaseURL != "http://my-server:9999" || c.cfg.Model != "m" || c.cfg.APIKey != "sk-1" {
		t.Errorf("explicit config overwritten: %+v", c.cfg)
	}
}

// ---------------------------------------------------------------------------
// HTTP behaviour
// ---------------------------------------------------------------------------

func testClient(t *testing.T, srv *httptest.Server, retries int) *client {
	t.Helper()
	c := newClient(Config{BaseURL: srv.URL, Model: "test-model", APIKey: "secret", MaxRetries: retries}, "/v1")
	c.retryDelay = time.Millisecond
	c.rateLimitDelay = time.Millisecond
	return c
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}
		if temp, ok := req["temperature"]; !ok || temp != 0.0 {
			t.Errorf("temperature = %v, present=%v; zero must be sent", temp, ok)
		}
		fmt.Fprint(w, `{"model":"test-model","choices":[{"message":{"content":"Value: 30 days"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`)
	}))
	defer srv.Close()

	resp, err := testClient(t, srv, 0).Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Value: 30 days" || resp.TotalTokens != 12 || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, 0).Chat(context.Background(), ChatRequest{})
	if !errors.Is(err, ErrNoChoices) {
		t.Fatalf("err = %v, want ErrNoChoices", err)
	}
}

func TestRetryOnServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	resp, err := testClient(t, srv, 3).Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" || calls.Load() != 3 {
		t.Errorf("content=%q calls=%d", resp.Content, calls.Load())
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	if _, err := testClient(t, srv, 2).Chat(context.Background(), ChatRequest{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, 5).Chat(context.Background(), ChatRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 APIError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, 2).Chat(context.Background(), ChatRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("err = %v, want wrapped 502", err)
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[{"index":1,"embedding":[0.5]},{"index":0,"embedding":[0.25]}]}`)
	}))
	defer srv.Close()

	got, err := testClient(t, srv, 0).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 0.25 || got[1][0] != 0.5 {
		t.Errorf("embeddings = %v", got)
	}
}

func TestOllamaNativeEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"embeddings":[[0.1,0.2],[0.3,0.4]]}`)
	}))
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "ollama", BaseURL: srv.URL, Model: "nomic-embed-text"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 || len(got[1]) != 2 || got[1][0] != float32(0.3) {
		t.Errorf("embeddings = %v", got)
	}
}

func TestRequestThrottle(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := newClient(Config{BaseURL: srv.URL, RequestsPerSecond: 20}, "/v1")
	if c.limiter == nil {
		t.Fatal("limiter not configured")
	}

	start := time.Now()
	for range 3 {
		if _, err := c.Chat(context.Background(), ChatRequest{}); err != nil {
			t.Fatal(err)
		}
	}
	// Burst 1 at 20/s: the second and third requests wait ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 requests took %v, want throttling", elapsed)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Chat(ctx, ChatRequest{}); err == nil {
		t.Error("expected error from cancelled context")
	}

	if newClient(Config{BaseURL: srv.URL}, "/v1").limiter != nil {
		t.Error("zero rate must leave requests unthrottled")
	}
}

package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestProvider(baseURL string) *Provider {
	return NewProviderWithConfig(&Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		EmbedModel: "text-embedding-004",
		ChatModel:  "gemini-2.0-flash",
		Timeout:    5 * time.Second,
		MaxRetries: 0,
	})
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(map[string]any{"base_url": "http://localhost"})
	if err == nil {
		t.Error("expected error when api_key is missing")
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("api key not forwarded")
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"bonjour"}],"role":"model"}}]}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	out, err := p.Generate(context.Background(), "translate hello", "you translate")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "bonjour" {
		t.Errorf("Generate = %q, want bonjour", out)
	}
}

func TestStreamSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "alt=sse") {
			t.Errorf("stream request should use alt=sse, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"candidates":[{"content":{"parts":[{"text":"The "}]}}]}`,
			``,
			`data: {"candidates":[{"content":{"parts":[{"text":"answer"}]}}]}`,
			``,
		}
		for _, line := range chunks {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	var sb strings.Builder
	err := p.Stream(context.Background(), "q", "", func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if sb.String() != "The answer" {
		t.Errorf("streamed text = %q, want 'The answer'", sb.String())
	}
}

package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestProvider(baseURL string) *Provider {
	return NewProviderWithConfig(&Config{
		BaseURL:    baseURL,
		EmbedModel: "nomic-embed-text",
		ChatModel:  "llama3.1:8b",
		Timeout:    5 * time.Second,
		MaxRetries: 0,
	})
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	embeddings, err := p.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embeddings) != 2 || embeddings[1][0] != 0.3 {
		t.Errorf("unexpected embeddings: %v", embeddings)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	p := newTestProvider("http://localhost:0")
	embeddings, err := p.Embed(context.Background(), nil)
	if err != nil || embeddings != nil {
		t.Errorf("empty input should short-circuit, got %v, %v", embeddings, err)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"llama3.1:8b","response":"the answer","done":true}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	out, err := p.Generate(context.Background(), "question", "system")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "the answer" {
		t.Errorf("Generate = %q, want 'the answer'", out)
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lines := []string{
			`{"response":"Hello","done":false}`,
			`{"response":" world","done":false}`,
			`{"response":"","done":true}`,
		}
		for _, line := range lines {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	var sb strings.Builder
	err := p.Stream(context.Background(), "hi", "", func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if sb.String() != "Hello world" {
		t.Errorf("streamed text = %q, want 'Hello world'", sb.String())
	}
}

func TestStreamHandlerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			_, _ = w.Write([]byte(`{"response":"x","done":false}` + "\n"))
		}
		_, _ = w.Write([]byte(`{"response":"","done":true}` + "\n"))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	abort := errors.New("client disconnected")
	calls := 0
	err := p.Stream(context.Background(), "hi", "", func(chunk string) error {
		calls++
		if calls == 3 {
			return abort
		}
		return nil
	})

	if !errors.Is(err, abort) {
		t.Fatalf("Stream should return the handler error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("handler called %d times after abort, want 3", calls)
	}
}

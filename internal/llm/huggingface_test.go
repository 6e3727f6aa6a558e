package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"smsgpt/internal/config"
	"log/slog"
)

func newTestHFClient(t *testing.T, srv *httptest.Server) *HuggingFaceClient {
	t.Helper()
	client := NewHuggingFaceClient(config.HuggingFaceConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "openchat/openchat-3.5",
	}, srv.Client(), slog.New(slog.NewTextHandler(os.Stdout, nil)))
	// Ретраи без реальных пауз.
	client.policy.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return client
}

func TestBuildPrompt(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "how are you"},
	}

	got := buildPrompt(history)
	want := "User: hello\nAssistant: hi\nUser: how are you\nAssistant:"
	if got != want {
		t.Fatalf("unexpected prompt:\n got: %q\nwant: %q", got, want)
	}
}

func TestBuildPrompt_SkipsUnknownRoles(t *testing.T) {
	history := []Message{
		{Role: "system", Content: "ignored"},
		{Role: RoleUser, Content: "hello"},
	}

	got := buildPrompt(history)
	want := "User: hello\nAssistant:"
	if got != want {
		t.Fatalf("unexpected prompt: %q", got)
	}
}

func TestHuggingFaceClient_GenerateListResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/openchat/openchat-3.5" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		w.Write([]byte(`[{"generated_text": "User: hello\nAssistant: hi there"}]`))
	}))
	defer srv.Close()

	client := newTestHFClient(t, srv)
	reply, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("expected 'hi there', got: %q", reply)
	}
}

func TestHuggingFaceClient_GenerateObjectResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generated_text": "User: ping\nAssistant: pong"}`))
	}))
	defer srv.Close()

	client := newTestHFClient(t, srv)
	reply, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "ping"}})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "pong" {
		t.Fatalf("expected 'pong', got: %q", reply)
	}
}

func TestHuggingFaceClient_TakesTextAfterLastMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"generated_text": "Assistant: old\nUser: again\nAssistant: fresh  "}]`))
	}))
	defer srv.Close()

	client := newTestHFClient(t, srv)
	reply, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "again"}})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "fresh" {
		t.Fatalf("expected trimmed text after last marker, got: %q", reply)
	}
}

func TestHuggingFaceClient_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"generated_text": "Assistant: recovered"}]`))
	}))
	defer srv.Close()

	client := newTestHFClient(t, srv)
	reply, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "recovered" {
		t.Fatalf("expected 'recovered', got: %q", reply)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 upstream calls, got: %d", got)
	}
}

func TestHuggingFaceClient_ErrorOnExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestHFClient(t, srv)
	if _, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
}

func TestHuggingFaceClient_ErrorOnClientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestHFClient(t, srv)
	if _, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Fatalf("expected error on 404")
	}
	// 4xx кроме 429 не ретраится.
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single call on 404, got: %d", got)
	}
}

func TestHuggingFaceClient_ErrorOnEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"generated_text": "User: hi\nAssistant:   "}]`))
	}))
	defer srv.Close()

	client := newTestHFClient(t, srv)
	if _, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Fatalf("expected error on empty reply")
	}
}

func TestHuggingFaceClient_ErrorWithoutModel(t *testing.T) {
	client := NewHuggingFaceClient(config.HuggingFaceConfig{
		BaseURL: "http://localhost",
	}, http.DefaultClient, slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if _, err := client.Generate(context.Background(), nil); err != ErrInvalidModel {
		t.Fatalf("expected ErrInvalidModel, got: %v", err)
	}
}

package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
)

func fastRetry(maxAttempts int) model.RetryConfig {
	return model.RetryConfig{
		MaxAttempts:       maxAttempts,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            0,
	}
}

func contextConfig(baseURL string) model.ContextServiceConfig {
	return model.ContextServiceConfig{
		BaseURL:     baseURL,
		Timeout:     time.Second,
		MaxMessages: 10,
		Retry:       fastRetry(3),
	}
}

func TestGetContextReturnsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get-context" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req getContextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.UserID != "u1" || req.MaxMessages != 10 {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(model.ConversationContext{
			RelevantMessages: []model.ContextMessage{
				{Role: RoleUser, Content: "hello"},
				{Role: RoleAssistant, Content: "hi there"},
			},
			Summary: "greeting exchange",
		})
	}))
	defer srv.Close()

	c := NewContextClient(contextConfig(srv.URL))
	snapshot := c.GetContext(context.Background(), "u1", "t1", "how are you")
	if snapshot.Empty() {
		t.Fatal("expected non-empty snapshot")
	}
	if len(snapshot.RelevantMessages) != 2 || snapshot.Summary != "greeting exchange" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestGetContextUnreachableDegradesToEmpty(t *testing.T) {
	c := NewContextClient(contextConfig("http://127.0.0.1:1"))
	snapshot := c.GetContext(context.Background(), "u1", "t1", "hello")
	if !snapshot.Empty() {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
}

func TestGetContextRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(model.ConversationContext{Summary: "recovered"})
	}))
	defer srv.Close()

	c := NewContextClient(contextConfig(srv.URL))
	snapshot := c.GetContext(context.Background(), "u1", "t1", "hello")
	if snapshot.Summary != "recovered" {
		t.Fatalf("expected recovered snapshot, got %+v", snapshot)
	}
	if calls.Load() != 3 {
		t.Fatalf("server called %d times, want 3", calls.Load())
	}
}

func TestGetContextBadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewContextClient(contextConfig(srv.URL))
	snapshot := c.GetContext(context.Background(), "u1", "t1", "hello")
	if !snapshot.Empty() {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
	if calls.Load() != 1 {
		t.Fatalf("server called %d times, want 1", calls.Load())
	}
}

func TestStoreMessageSwallowsFailures(t *testing.T) {
	c := NewContextClient(contextConfig("http://127.0.0.1:1"))
	// Must not panic or block beyond the bounded retries.
	c.StoreMessage(context.Background(), "u1", "t1", RoleUser, "hello")
}

func TestStoreMessageSendsTurn(t *testing.T) {
	var got storeMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/store-message" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
	}))
	defer srv.Close()

	c := NewContextClient(contextConfig(srv.URL))
	c.StoreMessage(context.Background(), "u1", "t1", RoleAssistant, "the answer")
	if got.Role != RoleAssistant || got.Content != "the answer" || got.UserID != "u1" {
		t.Fatalf("unexpected stored turn %+v", got)
	}
}

func TestRenderPromptContext(t *testing.T) {
	c := NewContextClient(contextConfig("http://unused"))

	if got := c.RenderPromptContext(model.ConversationContext{}); got != "" {
		t.Fatalf("empty snapshot should render to empty string, got %q", got)
	}

	snapshot := model.ConversationContext{
		RelevantMessages: []model.ContextMessage{
			{Role: RoleUser, Content: "what were sales today?"},
			{Role: RoleAssistant, Content: "Sales were $5,234."},
		},
		Summary: "sales questions",
	}
	got := c.RenderPromptContext(snapshot)
	for _, want := range []string{
		"<conversation_context>",
		"Summary: sales questions",
		"UserMessage(what were sales today?)",
		"AssistantMessage(Sales were $5,234.)",
		"</conversation_context>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered context missing %q:\n%s", want, got)
		}
	}
}

func TestRenderPromptContextTrimsToWindow(t *testing.T) {
	cfg := contextConfig("http://unused")
	cfg.MaxMessages = 2
	c := NewContextClient(cfg)

	snapshot := model.ConversationContext{
		RelevantMessages: []model.ContextMessage{
			{Role: RoleUser, Content: "oldest"},
			{Role: RoleUser, Content: "middle"},
			{Role: RoleUser, Content: "newest"},
		},
	}
	got := c.RenderPromptContext(snapshot)
	if strings.Contains(got, "oldest") {
		t.Errorf("window should drop the oldest turn:\n%s", got)
	}
	if !strings.Contains(got, "middle") || !strings.Contains(got, "newest") {
		t.Errorf("window should keep the most recent turns:\n%s", got)
	}
}

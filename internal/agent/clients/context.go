// Package clients holds the HTTP clients for the external collaborators the
// orchestration tier depends on: the conversation-context service and the
// tool-execution service. Every call is wrapped in the shared retry policy;
// error kinds are attached here, at the point failures are raised.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/resilience"
	"github.com/fdsanalytics/analytics-agent/server/internal/core/errx"
	logx "github.com/fdsanalytics/analytics-agent/server/pkg/logger"
)

// Conversation roles accepted by the context service.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContextClient fetches and stores conversation history from the external
// context service. It never propagates failures to its caller: history is not
// on the critical path of answering the user.
type ContextClient struct {
	baseURL string
	http    *http.Client
	cfg     model.ContextServiceConfig
}

func NewContextClient(cfg model.ContextServiceConfig) *ContextClient {
	return &ContextClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
	}
}

type getContextRequest struct {
	UserID         string `json:"userId"`
	ThreadID       string `json:"threadId,omitempty"`
	CurrentMessage string `json:"currentMessage"`
	MaxMessages    int    `json:"maxMessages"`
}

type storeMessageRequest struct {
	UserID   string `json:"userId"`
	ThreadID string `json:"threadId,omitempty"`
	Role     string `json:"role"`
	Content  string `json:"content"`
}

// GetContext returns the conversation snapshot for the given user/thread.
// Any failure, after retries are exhausted, degrades to an empty snapshot so
// the run proceeds without history rather than failing the request.
func (c *ContextClient) GetContext(ctx context.Context, userID, threadID, currentMessage string) model.ConversationContext {
	req := getContextRequest{
		UserID:         userID,
		ThreadID:       threadID,
		CurrentMessage: currentMessage,
		MaxMessages:    c.cfg.MaxMessages,
	}

	snapshot, err := resilience.Do(ctx, c.cfg.Retry, errx.IsCallerInput, c.logRetry("get-context"),
		func() (model.ConversationContext, error) {
			var out model.ConversationContext
			if err := c.post(ctx, "/get-context", req, &out); err != nil {
				return model.ConversationContext{}, err
			}
			return out, nil
		})
	if err != nil {
		logx.Warn().
			Err(err).
			Str("user_id", userID).
			Str("thread_id", threadID).
			Msg("Context fetch failed, proceeding with empty context")
		return model.ConversationContext{}
	}
	return snapshot
}

// StoreMessage persists one conversation turn. Failures are logged and
// swallowed: message persistence is fire-and-forget.
func (c *ContextClient) StoreMessage(ctx context.Context, userID, threadID, role, content string) {
	req := storeMessageRequest{UserID: userID, ThreadID: threadID, Role: role, Content: content}

	_, err := resilience.Do(ctx, c.cfg.Retry, errx.IsCallerInput, c.logRetry("store-message"),
		func() (struct{}, error) {
			return struct{}{}, c.post(ctx, "/store-message", req, nil)
		})
	if err != nil {
		logx.Warn().
			Err(err).
			Str("user_id", userID).
			Str("thread_id", threadID).
			Str("role", role).
			Msg("Failed to persist conversation message")
	}
}

// RenderPromptContext renders a snapshot into the context block the model is
// seeded with. Only the most recent MaxMessages turns are included.
func (c *ContextClient) RenderPromptContext(snapshot model.ConversationContext) string {
	if snapshot.Empty() {
		return ""
	}

	recent := snapshot.RelevantMessages
	if max := c.cfg.MaxMessages; max > 0 && len(recent) > max {
		recent = recent[len(recent)-max:]
	}

	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	if snapshot.Summary != "" {
		b.WriteString("Summary: " + snapshot.Summary + "\n")
	}
	for _, msg := range recent {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case RoleUser:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case RoleAssistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>")
	return b.String()
}

func (c *ContextClient) logRetry(op string) resilience.OnRetry {
	return func(attempt int, err error) {
		logx.Debug().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Msg("Retrying context service call")
	}
}

func (c *ContextClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errx.CallerInput("encode_request", "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errx.CallerInput("build_request", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errx.Transient("context_unreachable", "context service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errx.Transient("context_unavailable", fmt.Sprintf("context service returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return errx.CallerInput("context_rejected", fmt.Sprintf("context service rejected request with %d", resp.StatusCode), nil)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errx.Transient("context_decode", "failed to decode context service response", err)
	}
	return nil
}

package model

import (
	"encoding/json"
	"time"
)

// ChatMessageRequest is the inbound boundary value produced by the webhook
// layer. One instance per incoming chat message; owned by a single
// orchestration run and never mutated.
type ChatMessageRequest struct {
	WorkspaceID string    `json:"workspaceId"`
	UserID      string    `json:"userId"`
	Message     string    `json:"message"`
	ThreadID    string    `json:"threadId,omitempty"`
	MessageID   string    `json:"messageId"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatMessageResponse is the final output of one orchestration run, handed to
// the formatting/posting layer. Empty Text signals the delivery layer to post
// nothing (duplicate deliveries).
type ChatMessageResponse struct {
	Text       string `json:"text"`
	ChartURL   string `json:"chartUrl,omitempty"`
	ChartTitle string `json:"chartTitle,omitempty"`
	ThreadID   string `json:"threadId,omitempty"`
}

// ContextMessage is one prior turn returned by the context service.
type ContextMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationContext is the read-only history snapshot fetched once per run.
// The zero value (no messages, no summary) is a valid state, not an error.
type ConversationContext struct {
	RelevantMessages []ContextMessage `json:"relevantMessages"`
	Summary          string           `json:"summary,omitempty"`
}

// Empty reports whether the snapshot carries no usable history.
func (c ConversationContext) Empty() bool {
	return len(c.RelevantMessages) == 0 && c.Summary == ""
}

// ToolDescriptor enumerates one tool the model may call. Descriptors are
// loaded once at process start and immutable thereafter.
type ToolDescriptor struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ParameterSchema json.RawMessage `json:"parameterSchema,omitempty"`
}

// ToolResult is the decoded payload of one tool execution. Raw always holds
// the exact bytes returned by the tool service; Rows is filled when the
// payload is tabular.
type ToolResult struct {
	Raw        json.RawMessage
	Rows       []map[string]any
	ChartTitle string
}

// Tabular reports whether the result carries at least one row.
func (r *ToolResult) Tabular() bool {
	return r != nil && len(r.Rows) > 0
}

// ToolCallRecord captures one tool execution inside a run. Records are kept
// for the duration of the run only and surface in logs and chart selection.
type ToolCallRecord struct {
	ToolName   string
	Arguments  string
	Result     *ToolResult
	Err        error
	DurationMs int64
}

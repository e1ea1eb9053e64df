package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/resilience"
	"github.com/fdsanalytics/analytics-agent/server/internal/core/errx"
	logx "github.com/fdsanalytics/analytics-agent/server/pkg/logger"
)

// Error codes the tool service reports for caller mistakes. Anything else is
// treated as a service-side, retryable condition.
var terminalToolCodes = map[string]bool{
	"INVALID_ARGUMENT": true,
	"UNKNOWN_TOOL":     true,
	"SCHEMA_VIOLATION": true,
}

// safety limits for decoding tool payloads
const (
	maxResultRows = 1000
	maxErrSnippet = 200
)

// ToolExecutionClient invokes named analytics tools on the remote execution
// service. Caller-input failures (bad arguments, unknown tool) are terminal
// and never retried; network and availability failures are retried up to the
// configured maximum.
type ToolExecutionClient struct {
	baseURL string
	http    *http.Client
	cfg     model.ToolServiceConfig
}

func NewToolExecutionClient(cfg model.ToolServiceConfig) *ToolExecutionClient {
	return &ToolExecutionClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
	}
}

type executeRequest struct {
	ToolName  string          `json:"toolName"`
	Arguments json.RawMessage `json:"arguments"`
}

type executeResponse struct {
	Result    json.RawMessage `json:"result,omitempty"`
	ErrorCode string          `json:"errorCode,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type listToolsResponse struct {
	Tools []model.ToolDescriptor `json:"tools"`
}

// ListTools fetches the tool descriptors the execution service exposes.
func (c *ToolExecutionClient) ListTools(ctx context.Context) ([]model.ToolDescriptor, error) {
	return resilience.Do(ctx, c.cfg.Retry, errx.IsCallerInput, c.logRetry("list-tools"),
		func() ([]model.ToolDescriptor, error) {
			var out listToolsResponse
			if err := c.post(ctx, "/tools/list", struct{}{}, &out); err != nil {
				return nil, err
			}
			return out.Tools, nil
		})
}

// CallTool executes one named tool with JSON-encoded arguments and decodes
// the result payload. The returned error carries a kind assigned from the
// service's error code, never inferred from message text.
func (c *ToolExecutionClient) CallTool(ctx context.Context, name, arguments string) (*model.ToolResult, error) {
	args := json.RawMessage(arguments)
	if !json.Valid(args) {
		return nil, errx.CallerInput("invalid_arguments", fmt.Sprintf("arguments for %s are not valid JSON", name), nil)
	}

	return resilience.Do(ctx, c.cfg.Retry, errx.IsCallerInput, c.logRetry(name),
		func() (*model.ToolResult, error) {
			var out executeResponse
			if err := c.post(ctx, "/tools/execute", executeRequest{ToolName: name, Arguments: args}, &out); err != nil {
				return nil, err
			}
			if out.ErrorCode != "" {
				return nil, c.classifyServiceError(name, out.ErrorCode, out.Message)
			}
			return parseToolResult(out.Result), nil
		})
}

func (c *ToolExecutionClient) classifyServiceError(name, code, message string) error {
	msg := message
	if len(msg) > maxErrSnippet {
		msg = msg[:maxErrSnippet]
	}
	if terminalToolCodes[code] {
		return errx.CallerInput(code, fmt.Sprintf("tool %s rejected call: %s", name, msg), nil)
	}
	return errx.Transient(code, fmt.Sprintf("tool %s unavailable: %s", name, msg), nil)
}

func (c *ToolExecutionClient) logRetry(op string) resilience.OnRetry {
	return func(attempt int, err error) {
		logx.Debug().
			Err(err).
			Str("tool", op).
			Int("attempt", attempt).
			Msg("Retrying tool service call")
	}
}

func (c *ToolExecutionClient) post(ctx context.Context, path string, in, out any) error {
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
		return errx.Transient("tool_service_unreachable", "tool service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errx.Transient("tool_service_unavailable", fmt.Sprintf("tool service returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return errx.CallerInput("tool_request_rejected", fmt.Sprintf("tool service rejected request with %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errx.Transient("tool_decode", "failed to decode tool service response", err)
	}
	return nil
}

// parseToolResult extracts tabular rows and a chart title hint from a raw tool
// payload. Payloads that are not tabular keep Raw only; extraction never
// fails the call.
func parseToolResult(raw json.RawMessage) *model.ToolResult {
	result := &model.ToolResult{Raw: raw}
	if len(raw) == 0 {
		return result
	}

	// Either a bare array of row objects or an envelope with a "rows" field.
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		var envelope struct {
			Rows       []map[string]any `json:"rows"`
			ChartTitle string           `json:"chartTitle"`
			Title      string           `json:"title"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return result
		}
		rows = envelope.Rows
		result.ChartTitle = envelope.ChartTitle
		if result.ChartTitle == "" {
			result.ChartTitle = envelope.Title
		}
	}

	if len(rows) > maxResultRows {
		rows = rows[:maxResultRows]
	}
	result.Rows = rows
	return result
}

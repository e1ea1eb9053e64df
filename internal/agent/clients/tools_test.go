package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/core/errx"
)

func toolConfig(baseURL string) model.ToolServiceConfig {
	return model.ToolServiceConfig{
		BaseURL: baseURL,
		Timeout: time.Second,
		Retry:   fastRetry(3),
	}
}

func executeHandler(t *testing.T, respond func(req executeRequest) executeResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools/execute" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(respond(req))
	}
}

func TestCallToolDecodesTabularResult(t *testing.T) {
	srv := httptest.NewServer(executeHandler(t, func(req executeRequest) executeResponse {
		if req.ToolName != "show_daily_sales" {
			t.Errorf("unexpected tool %s", req.ToolName)
		}
		return executeResponse{Result: json.RawMessage(`[{"date":"2025-05-01","revenue":1200.5},{"date":"2025-05-02","revenue":980}]`)}
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	result, err := c.CallTool(context.Background(), "show_daily_sales", `{"tenantId":"senso-sushi","startDate":"2025-05-01","endDate":"2025-05-02"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Tabular() || len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", result)
	}
}

func TestCallToolDecodesEnvelopeResult(t *testing.T) {
	srv := httptest.NewServer(executeHandler(t, func(executeRequest) executeResponse {
		return executeResponse{Result: json.RawMessage(`{"rows":[{"item":"Salmon Roll","count":42}],"chartTitle":"Top Items"}`)}
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	result, err := c.CallTool(context.Background(), "show_top_items", `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 1 || result.ChartTitle != "Top Items" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCallToolNonTabularResultKeepsRaw(t *testing.T) {
	srv := httptest.NewServer(executeHandler(t, func(executeRequest) executeResponse {
		return executeResponse{Result: json.RawMessage(`{"total":15234.75}`)}
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	result, err := c.CallTool(context.Background(), "get_total_sales", `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Tabular() {
		t.Fatalf("scalar payload should not be tabular: %+v", result)
	}
	if string(result.Raw) != `{"total":15234.75}` {
		t.Fatalf("raw payload not preserved: %s", result.Raw)
	}
}

func TestCallToolInvalidArgumentsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	_, err := c.CallTool(context.Background(), "show_daily_sales", `{not json`)
	if !errx.IsCallerInput(err) {
		t.Fatalf("expected caller-input error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("invalid arguments must not reach the service")
	}
}

func TestCallToolTerminalErrorCodeNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(executeHandler(t, func(executeRequest) executeResponse {
		calls.Add(1)
		return executeResponse{ErrorCode: "UNKNOWN_TOOL", Message: "no such tool"}
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	_, err := c.CallTool(context.Background(), "bogus_tool", `{}`)
	if !errx.IsCallerInput(err) {
		t.Fatalf("expected caller-input error, got %v", err)
	}
	if errx.CodeOf(err) != "UNKNOWN_TOOL" {
		t.Fatalf("expected service code preserved, got %q", errx.CodeOf(err))
	}
	if calls.Load() != 1 {
		t.Fatalf("service called %d times, want 1", calls.Load())
	}
}

func TestCallToolTransientErrorCodeRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(executeHandler(t, func(executeRequest) executeResponse {
		if calls.Add(1) < 2 {
			return executeResponse{ErrorCode: "BACKEND_TIMEOUT", Message: "warehouse slow"}
		}
		return executeResponse{Result: json.RawMessage(`[{"date":"2025-05-01","revenue":100}]`)}
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	result, err := c.CallTool(context.Background(), "show_daily_sales", `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Tabular() {
		t.Fatalf("expected tabular result after retry, got %+v", result)
	}
	if calls.Load() != 2 {
		t.Fatalf("service called %d times, want 2", calls.Load())
	}
}

func TestCallToolExhaustedRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	_, err := c.CallTool(context.Background(), "show_daily_sales", `{}`)
	if !errx.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("service called %d times, want 3", calls.Load())
	}
}

func TestCallToolRowLimit(t *testing.T) {
	rows := make([]map[string]any, maxResultRows+50)
	for i := range rows {
		rows[i] = map[string]any{"date": "2025-05-01", "revenue": float64(i)}
	}
	payload, _ := json.Marshal(rows)
	srv := httptest.NewServer(executeHandler(t, func(executeRequest) executeResponse {
		return executeResponse{Result: payload}
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	result, err := c.CallTool(context.Background(), "show_daily_sales", `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != maxResultRows {
		t.Fatalf("rows not capped: got %d, want %d", len(result.Rows), maxResultRows)
	}
}

func TestListTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools/list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(listToolsResponse{Tools: []model.ToolDescriptor{
			{Name: "show_daily_sales", Description: "daily sales"},
			{Name: "get_total_sales", Description: "total sales"},
		}})
	}))
	defer srv.Close()

	c := NewToolExecutionClient(toolConfig(srv.URL))
	descs, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descs) != 2 || descs[0].Name != "show_daily_sales" {
		t.Fatalf("unexpected descriptors %+v", descs)
	}
}

func TestListToolsUnreachable(t *testing.T) {
	c := NewToolExecutionClient(toolConfig("http://127.0.0.1:1"))
	if _, err := c.ListTools(context.Background()); !errx.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

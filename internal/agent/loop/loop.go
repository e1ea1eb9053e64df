// Package loop drives the tool-calling conversation with the chat model. Each
// round sends the transcript to the model; the round either finishes with a
// textual answer or selects tools whose results are appended as tool messages
// before the next round.
package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/core/errx"
	logx "github.com/fdsanalytics/analytics-agent/server/pkg/logger"
)

// State names one phase of a run. Transitions are strictly
// AwaitingModel -> ToolSelected -> ToolExecuted -> AwaitingModel, with any
// AwaitingModel able to move to Finished instead.
type State int

const (
	StateAwaitingModel State = iota
	StateToolSelected
	StateToolExecuted
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolSelected:
		return "tool_selected"
	case StateToolExecuted:
		return "tool_executed"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ToolCaller executes a named tool with raw JSON arguments.
type ToolCaller interface {
	CallTool(ctx context.Context, name, arguments string) (*model.ToolResult, error)
}

// Result is the outcome of a completed run.
type Result struct {
	Text         string
	Records      []model.ToolCallRecord
	FallbackUsed bool
	CostUSD      float64
	Rounds       int
}

// Loop owns the per-run state machine. A Loop is stateless between runs and
// safe for concurrent use.
type Loop struct {
	chat    einomodel.ToolCallingChatModel
	tools   ToolCaller
	cfg     model.LoopConfig
	pricing model.Pricing
	hooks   Hooks
}

// New builds a Loop around a tool-bound chat model.
func New(chat einomodel.ToolCallingChatModel, tools ToolCaller, cfg model.LoopConfig, modelName string, hooks Hooks) *Loop {
	if cfg.MaxRounds < 1 {
		cfg.MaxRounds = 1
	}
	return &Loop{
		chat:    chat,
		tools:   tools,
		cfg:     cfg,
		pricing: model.ResolvePricing(modelName),
		hooks:   hooks,
	}
}

// Run executes the state machine starting from the seed transcript until the
// model produces a final answer, the round cap is reached, or a transient
// failure exhausts its retries.
func (l *Loop) Run(ctx context.Context, seed []*schema.Message) (*Result, error) {
	messages := make([]*schema.Message, len(seed))
	copy(messages, seed)

	res := &Result{}

	for round := 1; round <= l.cfg.MaxRounds; round++ {
		res.Rounds = round

		out, err := l.chat.Generate(ctx, messages)
		l.hooks.modelCall(round, out, err)
		if err != nil {
			logx.Error().Err(err).Int("round", round).Msg("Chat model call failed")
			return nil, errx.Transient("model_unavailable", "chat model call failed", err)
		}
		l.accumulateCost(res, out)

		if len(out.ToolCalls) == 0 {
			res.Text = out.Content
			l.hooks.roundEnd(round, StateFinished)
			logx.Debug().Int("round", round).Msg("Run finished with model answer")
			return res, nil
		}

		messages = append(messages, out)

		for i := range out.ToolCalls {
			call := &out.ToolCalls[i]
			if strings.TrimSpace(call.ID) == "" {
				call.ID = uuid.NewString()
			}

			record, toolMsg, err := l.executeCall(ctx, call)
			res.Records = append(res.Records, record)
			if err != nil {
				l.hooks.roundEnd(round, StateToolSelected)
				return nil, err
			}
			messages = append(messages, toolMsg)
		}

		l.hooks.roundEnd(round, StateToolExecuted)
	}

	// Round cap reached without a final answer.
	res.FallbackUsed = true
	res.Text = fallbackText(res.Records)
	logx.Warn().Int("max_rounds", l.cfg.MaxRounds).Msg("Round cap reached, returning fallback answer")
	return res, nil
}

// executeCall runs one tool call and converts its outcome into a tool message.
// Terminal failures are fed back to the model as an error payload so it can
// correct itself; transient exhaustion aborts the run.
func (l *Loop) executeCall(ctx context.Context, call *schema.ToolCall) (model.ToolCallRecord, *schema.Message, error) {
	start := time.Now()
	result, err := l.tools.CallTool(ctx, call.Function.Name, call.Function.Arguments)
	record := model.ToolCallRecord{
		ToolName:   call.Function.Name,
		Arguments:  call.Function.Arguments,
		Result:     result,
		Err:        err,
		DurationMs: time.Since(start).Milliseconds(),
	}
	l.hooks.toolCall(record)

	switch {
	case err == nil:
		return record, schema.ToolMessage(string(result.Raw), call.ID, schema.WithToolName(call.Function.Name)), nil
	case errx.IsCallerInput(err):
		logx.Warn().Err(err).Str("tool", call.Function.Name).Msg("Tool rejected call, feeding error back to model")
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return record, schema.ToolMessage(string(payload), call.ID, schema.WithToolName(call.Function.Name)), nil
	default:
		logx.Error().Err(err).Str("tool", call.Function.Name).Msg("Tool execution failed after retries")
		return record, nil, errx.Transient("tool_unavailable", fmt.Sprintf("tool %s failed", call.Function.Name), err)
	}
}

func (l *Loop) accumulateCost(res *Result, out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	_, _, total := model.ComputeCost(out.ResponseMeta.Usage, l.pricing)
	res.CostUSD += total
}

// fallbackText builds a best-effort answer from the last tool call that
// produced tabular data.
func fallbackText(records []model.ToolCallRecord) string {
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Err == nil && r.Result.Tabular() {
			return fmt.Sprintf(
				"I gathered data from %s (%d rows) but could not finish a full analysis. Please ask a more specific question about it.",
				r.ToolName, len(r.Result.Rows),
			)
		}
	}
	return "I could not complete the analysis in time. Please try a simpler or more specific question."
}

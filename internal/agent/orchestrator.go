// Package agent wires the context service, the function-call loop, and the
// chart pipeline into a single message-handling surface.
package agent

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/chart"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/clients"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/loop"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/prompts"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/repo"
	"github.com/fdsanalytics/analytics-agent/server/internal/core/errx"
	logx "github.com/fdsanalytics/analytics-agent/server/pkg/logger"
)

const (
	transientApology = "I'm having trouble accessing the data right now. Please try again in a moment."
	genericApology   = "Something went wrong while answering that. Please try again."
)

// Orchestrator handles one chat message end to end. All downstream failures
// degrade into a plain-text answer; HandleMessage never returns an error.
type Orchestrator struct {
	contexts *clients.ContextClient
	loop     *loop.Loop
	charts   *chart.Pipeline
	dedupe   repo.MessageDeduper
	prompts  model.PromptConfig
	chartCfg model.ChartConfig
}

// NewOrchestrator builds an Orchestrator. dedupe may be nil when Redis is not
// configured.
func NewOrchestrator(
	contexts *clients.ContextClient,
	l *loop.Loop,
	charts *chart.Pipeline,
	dedupe repo.MessageDeduper,
	promptCfg model.PromptConfig,
	chartCfg model.ChartConfig,
) *Orchestrator {
	return &Orchestrator{
		contexts: contexts,
		loop:     l,
		charts:   charts,
		dedupe:   dedupe,
		prompts:  promptCfg,
		chartCfg: chartCfg,
	}
}

// HandleMessage answers one inbound chat message.
func (o *Orchestrator) HandleMessage(ctx context.Context, req model.ChatMessageRequest) model.ChatMessageResponse {
	runID := uuid.NewString()
	log := logx.With().Str("run_id", runID).Str("thread_id", req.ThreadID).Logger()

	if o.dedupe != nil && o.dedupe.Seen(ctx, req.MessageID) {
		log.Info().Str("message_id", req.MessageID).Msg("Duplicate message, skipping")
		return model.ChatMessageResponse{ThreadID: req.ThreadID}
	}

	snapshot := o.contexts.GetContext(ctx, req.UserID, req.ThreadID, req.Message)

	seed, err := o.seedMessages(ctx, snapshot, req.Message)
	if err != nil {
		log.Error().Err(err).Msg("System prompt render failed")
		return model.ChatMessageResponse{Text: genericApology, ThreadID: req.ThreadID}
	}

	result, err := o.loop.Run(ctx, seed)
	if err != nil {
		if errx.IsTransient(err) {
			log.Warn().Err(err).Msg("Run aborted on transient failure")
			return model.ChatMessageResponse{Text: transientApology, ThreadID: req.ThreadID}
		}
		log.Error().Err(err).Msg("Run aborted")
		return model.ChatMessageResponse{Text: genericApology, ThreadID: req.ThreadID}
	}
	log.Info().
		Int("rounds", result.Rounds).
		Int("tool_calls", len(result.Records)).
		Bool("fallback", result.FallbackUsed).
		Float64("cost_usd", result.CostUSD).
		Msg("Run finished")

	resp := model.ChatMessageResponse{Text: result.Text, ThreadID: req.ThreadID}
	o.attachChart(&resp, result.Records)

	// Persist the exchange off the request path; a failed store never blocks
	// or alters the answer.
	go func() {
		bg := context.Background()
		o.contexts.StoreMessage(bg, req.UserID, req.ThreadID, clients.RoleUser, req.Message)
		o.contexts.StoreMessage(bg, req.UserID, req.ThreadID, clients.RoleAssistant, result.Text)
	}()

	return resp
}

// seedMessages builds the initial transcript: system prompt, prior
// conversation context, then the user message.
func (o *Orchestrator) seedMessages(ctx context.Context, snapshot model.ConversationContext, userMessage string) ([]*schema.Message, error) {
	system, err := prompts.RenderSystem(ctx, o.prompts)
	if err != nil {
		return nil, err
	}
	if block := o.contexts.RenderPromptContext(snapshot); block != "" {
		system += "\n\n" + block
	}
	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(userMessage),
	}, nil
}

// attachChart derives a chart from the most recent tabular tool result.
func (o *Orchestrator) attachChart(resp *model.ChatMessageResponse, records []model.ToolCallRecord) {
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Err != nil || !r.Result.Tabular() {
			continue
		}
		title := r.Result.ChartTitle
		if title == "" {
			title = r.ToolName
		}
		spec, ok := chart.FromRows(title, r.Result.Rows, o.chartCfg.MaxDataPoints)
		if !ok {
			return
		}
		if u := o.charts.Build(spec); u != "" {
			resp.ChartURL = u
			resp.ChartTitle = spec.Title
		}
		return
	}
}

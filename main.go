package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/chart"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/clients"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/loop"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/repo"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/resilience"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/tools"
	"github.com/fdsanalytics/analytics-agent/server/internal/core"
	logx "github.com/fdsanalytics/analytics-agent/server/pkg/logger"
	pkgredis "github.com/fdsanalytics/analytics-agent/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the analytics agent,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Downstream services
	Context model.ContextServiceConfig `envconfig:"CONTEXT"`
	Tools   model.ToolServiceConfig    `envconfig:"TOOLS"`

	// Agent configs
	Response model.ResponseModelConfig `envconfig:"RESPONSE"`
	Prompt   model.PromptConfig        `envconfig:"PROMPT"`
	Loop     model.LoopConfig          `envconfig:"LOOP"`
	Chart    model.ChartConfig         `envconfig:"CHART"`
	Breaker  model.BreakerConfig       `envconfig:"CHART_BREAKER"`
	Dedupe   model.DedupeConfig        `envconfig:"DEDUPE"`
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(os.Getenv("APP_ENV")),
		Service:     "analytics-agent",
	})

	var dedupe repo.MessageDeduper
	if envCfg.Redis.Enabled() {
		rdb, err := envCfg.Redis.New()
		if err != nil {
			log.Fatalf("Failed to initialise Redis client: %v", err)
		}
		defer rdb.Close()
		dedupe = repo.NewRedisDeduper(rdb, envCfg.Dedupe.TTL)
		fmt.Println("Connected to Redis successfully")
	}

	contextClient := clients.NewContextClient(envCfg.Context)
	toolsClient := clients.NewToolExecutionClient(envCfg.Tools)

	// Remote listing is advisory; the built-in catalog covers the degraded path.
	available, err := toolsClient.ListTools(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("Tool listing failed, using built-in catalog")
		available = tools.Descriptors()
	}

	chatModel, err := agent.NewChatModel(ctx, agent.ChatModelConfig{
		APIKey:   envCfg.APIKey,
		BaseURL:  envCfg.BaseURL,
		Response: envCfg.Response,
	}, available)
	if err != nil {
		log.Fatalf("Failed to build chat model: %v", err)
	}

	runLoop := loop.New(chatModel, toolsClient, envCfg.Loop, envCfg.Response.Model, loop.Hooks{
		OnToolCall: func(record model.ToolCallRecord) {
			logx.Debug().
				Str("tool", record.ToolName).
				Int64("duration_ms", record.DurationMs).
				Bool("failed", record.Err != nil).
				Msg("Tool call finished")
		},
	})

	breaker := resilience.NewBreaker(envCfg.Breaker.Threshold, envCfg.Breaker.CoolDown)
	pipeline := chart.NewPipeline(envCfg.Chart, breaker)

	orchestrator := agent.NewOrchestrator(contextClient, runLoop, pipeline, dedupe, envCfg.Prompt, envCfg.Chart)

	testQueries := []struct {
		description string
		query       string
	}{
		{
			description: "Total sales for a recent period",
			query:       "What were our total sales last week?",
		},
		{
			description: "Top sellers with a category filter",
			query:       "Show me the top 5 sushi items for May",
		},
		{
			description: "Trend comparison across periods",
			query:       "Compare May and June revenue",
		},
	}

	threadID := "demo-thread-1"
	userID := "demo-user"

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Query: %q\n", test.query)

		resp := orchestrator.HandleMessage(ctx, model.ChatMessageRequest{
			WorkspaceID: "demo-workspace",
			UserID:      userID,
			ThreadID:    threadID,
			MessageID:   uuid.NewString(),
			Message:     test.query,
			Timestamp:   time.Now(),
		})

		fmt.Printf("Response %d: %s\n", i+1, resp.Text)
		if resp.ChartURL != "" {
			fmt.Printf("Chart (%s): %s\n", resp.ChartTitle, resp.ChartURL)
		}
	}

	fmt.Println("\nAll demo queries completed")
}

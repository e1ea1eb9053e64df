package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/tools"
	logx "github.com/fdsanalytics/analytics-agent/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	APIKey   string
	BaseURL  string
	Response model.ResponseModelConfig
}

// NewChatModel creates the Gemini response model with the analytics tool
// catalog bound. available filters the catalog to tools the execution service
// actually serves; pass the built-in descriptors when remote listing failed.
func NewChatModel(ctx context.Context, config ChatModelConfig, available []model.ToolDescriptor) (einomodel.ToolCallingChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Response.Model,
		Temperature: &config.Response.Temperature,
		MaxTokens:   &config.Response.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	bound := boundCatalog(available)
	if len(bound) == 0 {
		return nil, fmt.Errorf("no usable tools in catalog")
	}
	withTools, err := chatModel.WithTools(bound)
	if err != nil {
		logx.Error().Err(err).Msg("Error binding tools to response model")
		return nil, fmt.Errorf("error binding tools: %w", err)
	}
	return withTools, nil
}

// boundCatalog intersects the built-in catalog with the tools the execution
// service reported.
func boundCatalog(available []model.ToolDescriptor) []*schema.ToolInfo {
	names := tools.Names(available)
	infos := make([]*schema.ToolInfo, 0, len(names))
	for _, info := range tools.Catalog() {
		if names[info.Name] {
			infos = append(infos, info)
		}
	}
	return infos
}

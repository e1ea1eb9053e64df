package model

import "time"

// ================ Config ================

// RetryConfig tunes the bounded-retry executor. One instance per client type.
type RetryConfig struct {
	MaxAttempts       int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	InitialDelay      time.Duration `envconfig:"INITIAL_DELAY" default:"200ms"`
	MaxDelay          time.Duration `envconfig:"MAX_DELAY" default:"5s"`
	BackoffMultiplier float64       `envconfig:"BACKOFF_MULTIPLIER" default:"2.0"`
	Jitter            float64       `envconfig:"JITTER" default:"0.2"`
}

// BreakerConfig tunes a circuit breaker guarding one downstream.
type BreakerConfig struct {
	Threshold int           `envconfig:"THRESHOLD" default:"5"`
	CoolDown  time.Duration `envconfig:"COOL_DOWN" default:"60s"`
}

// ContextServiceConfig points at the external conversation-context service.
type ContextServiceConfig struct {
	BaseURL     string        `envconfig:"BASE_URL"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"5s"`
	MaxMessages int           `envconfig:"MAX_MESSAGES" default:"10"`
	Retry       RetryConfig
}

// ToolServiceConfig points at the external tool-execution service.
type ToolServiceConfig struct {
	BaseURL string        `envconfig:"BASE_URL"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`
	Retry   RetryConfig
}

// LoopConfig bounds the model-driven function-call loop.
type LoopConfig struct {
	MaxRounds int `envconfig:"MAX_ROUNDS" default:"5"`
}

// ChartConfig tunes chart rendering-URL construction.
type ChartConfig struct {
	BaseURL       string `envconfig:"BASE_URL" default:"https://quickchart.io"`
	MaxDataPoints int    `envconfig:"MAX_DATA_POINTS" default:"20"`
	MaxURLLength  int    `envconfig:"MAX_URL_LENGTH" default:"16000"`
}

// ResponseModelConfig selects and tunes the generative model.
type ResponseModelConfig struct {
	Model       string  `envconfig:"MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"TEMPERATURE" default:"1.0"`
}

// PromptConfig parameterises the system prompt for a restaurant deployment.
type PromptConfig struct {
	BusinessName     string `envconfig:"BUSINESS_NAME" default:"Senso Sushi"`
	BusinessLocation string `envconfig:"BUSINESS_LOCATION" default:"Frankfort"`
	TenantID         string `envconfig:"TENANT_ID" default:"senso-sushi"`
}

// DedupeConfig tunes duplicate-delivery suppression.
type DedupeConfig struct {
	TTL time.Duration `envconfig:"TTL" default:"10m"`
}

package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

var ErrPromptRequired = errors.New("prompt is required")

type Config struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// StreamOptions are caller supplied overrides, decoded from a free form map.
type StreamOptions struct {
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DeltaFunc receives each non-empty content fragment in arrival order.
// Returning an error stops the stream.
type DeltaFunc func(content string) error

type StreamClient interface {
	CompletionsStream(ctx context.Context, config *Config, prompt string, onDelta DeltaFunc) error
}

// ApplyOptions overlays raw request options on a copy of config. Unknown keys
// are ignored; a type mismatch is an error.
func ApplyOptions(config *Config, raw map[string]interface{}) (*Config, error) {
	merged := *config
	if len(raw) == 0 {
		return &merged, nil
	}
	var opts StreamOptions
	if err := mapstructure.WeakDecode(raw, &opts); err != nil {
		return nil, fmt.Errorf("invalid stream options: %w", err)
	}
	if opts.Model != "" {
		merged.Model = opts.Model
	}
	if opts.MaxTokens > 0 {
		merged.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		merged.Temperature = opts.Temperature
	}
	return &merged, nil
}

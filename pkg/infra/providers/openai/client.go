package openai

import (
	"context"
	"fmt"
	"sync"

	"github.com/NeuralTrust/TrustGuard/pkg/infra/providers"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"golang.org/x/sync/singleflight"
)

const DefaultModel = "gpt-4o-mini"

type client struct {
	clientPool *sync.Map
	sf         singleflight.Group
}

func NewOpenaiClient() providers.StreamClient {
	return &client{
		clientPool: &sync.Map{},
	}
}

func (c *client) CompletionsStream(
	ctx context.Context,
	config *providers.Config,
	prompt string,
	onDelta providers.DeltaFunc,
) error {
	if prompt == "" {
		return providers.ErrPromptRequired
	}
	if config.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(config.MaxTokens))
	}
	if config.Temperature > 0 {
		params.Temperature = openai.Float(config.Temperature)
	}

	openaiClient := c.getOrCreateClient(config.APIKey, config.BaseURL)
	respStream := openaiClient.Chat.Completions.NewStreaming(ctx, params)
	defer respStream.Close()

	for respStream.Next() {
		chunk := respStream.Current()
		for _, choice := range chunk.Choices {
			if content := choice.Delta.Content; content != "" {
				if err := onDelta(content); err != nil {
					return err
				}
			}
		}
	}
	if err := respStream.Err(); err != nil {
		return fmt.Errorf("openAI stream failed: %w", err)
	}
	return nil
}

func (c *client) getOrCreateClient(apiKey, baseURL string) *openai.Client {
	poolKey := apiKey + "|" + baseURL
	if v, ok := c.clientPool.Load(poolKey); ok {
		if client, ok := v.(*openai.Client); ok {
			return client
		}
	}
	v, _, _ := c.sf.Do(poolKey, func() (any, error) {
		if v2, ok := c.clientPool.Load(poolKey); ok {
			return v2, nil
		}
		cli := newClient(apiKey, baseURL)
		c.clientPool.Store(poolKey, cli)
		return cli, nil
	})
	if client, ok := v.(*openai.Client); ok {
		return client
	}
	return newClient(apiKey, baseURL)
}

func newClient(apiKey, baseURL string) *openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	cli := openai.NewClient(opts...)
	return &cli
}

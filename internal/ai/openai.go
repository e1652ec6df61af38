package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type openAIProvider struct {
	name   string
	client *openai.Client
}

func newOpenAIProvider(name string, apiKey string, cc openai.ClientConfig) *openAIProvider {
	p := &openAIProvider{name: name}
	if apiKey != "" {
		p.client = openai.NewClientWithConfig(cc)
	}
	return p
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string, maxTokens int) (string, error) {
	if p.client == nil {
		return "", appErr.ErrUnavailable
	}
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s response has no choices", p.name)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.client == nil {
		return nil, appErr.ErrUnavailable
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("%s embeddings: %w", p.name, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s response has no embeddings", p.name)
	}
	return resp.Data[0].Embedding, nil
}

func openAIClientConfig(args interface{}) (*openAIConfig, openai.ClientConfig, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, openai.ClientConfig{}, err
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	cc.BaseURL = strings.TrimRight(baseURL, "/")
	return cfg, cc, nil
}

func createOpenAIFactory(args interface{}) (IProvider, error) {
	cfg, cc, err := openAIClientConfig(args)
	if err != nil {
		return nil, err
	}
	return newOpenAIProvider("openai", cfg.APIKey, cc), nil
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg, cc, err := openAIClientConfig(args)
	if err != nil {
		return nil, err
	}
	return newOpenAIProvider("openai", cfg.APIKey, cc), nil
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}

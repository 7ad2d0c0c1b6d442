package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/additivelens/additivelens/internal/model"
)

// OpenAIRecognizer reads labels with an OpenAI vision model through the Chat
// Completions API
type OpenAIRecognizer struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewOpenAIRecognizer creates a new OpenAI recognizer
func NewOpenAIRecognizer(cfg model.OCRConfig) (*OpenAIRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(0, cfg.HTTPProxy, cfg.HTTPSProxy)

	m := cfg.Model
	if m == "" {
		m = openai.GPT4oMini
	}

	return &OpenAIRecognizer{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     m,
		maxTokens: defaultInt(cfg.MaxTokens, 2000),
		timeout:   defaultDuration(cfg.Timeout, 30*time.Second),
	}, nil
}

// Name returns the provider name
func (r *OpenAIRecognizer) Name() string {
	return ProviderOpenAI
}

// Recognize sends the image inline as a data URL
func (r *OpenAIRecognizer) Recognize(ctx context.Context, img Image) (*Result, error) {
	img, err := Prepare(img, 0)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: Prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.DataURL(),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		MaxTokens:   r.maxTokens,
		Temperature: 0,
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return &Result{
		Text:     cleanText(resp.Choices[0].Message.Content),
		Provider: ProviderOpenAI,
		Model:    resp.Model,
		Duration: time.Since(start),
		Tokens:   resp.Usage.TotalTokens,
	}, nil
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func defaultDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/additivelens/additivelens/internal/model"
)

// OllamaRecognizer reads labels with a local vision model (llava, llama3.2-vision)
type OllamaRecognizer struct {
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Images  []string      `json:"images"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaRecognizer creates a new Ollama recognizer
func NewOllamaRecognizer(cfg model.OCRConfig) (*OllamaRecognizer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llava, llama3.2-vision)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaRecognizer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      cfg.Model,
		maxTokens:  defaultInt(cfg.MaxTokens, 2000),
		httpClient: newHTTPClient(defaultDuration(cfg.Timeout, 60*time.Second), cfg.HTTPProxy, cfg.HTTPSProxy),
	}, nil
}

// Name returns the provider name
func (r *OllamaRecognizer) Name() string {
	return ProviderOllama
}

// Recognize calls /api/generate with the image attached
func (r *OllamaRecognizer) Recognize(ctx context.Context, img Image) (*Result, error) {
	img, err := Prepare(img, 0)
	if err != nil {
		return nil, err
	}

	apiReq := ollamaRequest{
		Model:  r.model,
		Prompt: Prompt,
		Images: []string{img.Base64()},
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0,
			NumPredict:  r.maxTokens,
		},
	}

	start := time.Now()
	resp, err := r.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	return &Result{
		Text:     cleanText(resp.Response),
		Provider: ProviderOllama,
		Model:    resp.Model,
		Duration: time.Since(start),
		Tokens:   resp.PromptEvalCount + resp.EvalCount,
	}, nil
}

func (r *OllamaRecognizer) makeRequest(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, &StatusError{Code: httpResp.StatusCode, Message: apiErr.Error}
		}
		return nil, &StatusError{Code: httpResp.StatusCode, Message: string(respBody)}
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

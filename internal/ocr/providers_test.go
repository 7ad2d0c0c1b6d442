package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/additivelens/additivelens/internal/model"
)

func TestOpenAIRecognizer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if len(req.Messages) != 1 || len(req.Messages[0].MultiContent) != 2 {
			t.Errorf("Expected one message with text and image parts, got %+v", req.Messages)
			return
		}
		part := req.Messages[0].MultiContent[1]
		if part.ImageURL == nil || !strings.HasPrefix(part.ImageURL.URL, "data:image/png;base64,") {
			t.Errorf("Expected inline PNG data URL, got %+v", part.ImageURL)
		}

		resp := openai.ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "원재료명: 구연산, 황색5호"}},
			},
			Usage: openai.Usage{TotalTokens: 321},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	r, err := NewOpenAIRecognizer(model.OCRConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create recognizer: %v", err)
	}

	res, err := r.Recognize(context.Background(), Image{Data: pngImage})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if res.Text != "원재료명: 구연산, 황색5호" {
		t.Errorf("Unexpected text: %q", res.Text)
	}
	if res.Tokens != 321 || res.Provider != ProviderOpenAI {
		t.Errorf("Unexpected metadata: %+v", res)
	}
}

func TestOpenAIRecognizer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests"}}`))
	}))
	defer server.Close()

	r, _ := NewOpenAIRecognizer(model.OCRConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	if _, err := r.Recognize(context.Background(), Image{Data: pngImage}); err == nil {
		t.Error("Expected error, got nil")
	}
}

func TestOpenAIRecognizer_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	r, _ := NewOpenAIRecognizer(model.OCRConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	if _, err := r.Recognize(context.Background(), Image{Data: pngImage}); err == nil {
		t.Error("Expected timeout error, got nil")
	}
	if time.Since(start) > time.Second {
		t.Errorf("Expected recognizer to give up after its timeout, took %v", time.Since(start))
	}
}

func TestAnthropicRecognizer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key test-key, got %s", r.Header.Get("x-api-key"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		content := req.Messages[0].Content
		if content[0].Type != "image" || content[0].Source == nil || content[0].Source.MediaType != "image/png" {
			t.Errorf("Expected base64 PNG image block first, got %+v", content[0])
		}

		_, _ = w.Write([]byte(`{"model":"test-model","content":[{"type":"text","text":"구연산\n"},{"type":"text","text":"젖산"}],"usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer server.Close()

	r, err := NewAnthropicRecognizer(model.OCRConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create recognizer: %v", err)
	}

	res, err := r.Recognize(context.Background(), Image{Data: pngImage})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if res.Text != "구연산\n젖산" {
		t.Errorf("Unexpected text: %q", res.Text)
	}
	if res.Tokens != 15 || res.Model != "test-model" {
		t.Errorf("Unexpected metadata: %+v", res)
	}
}

func TestAnthropicRecognizer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"image too small"}}`))
	}))
	defer server.Close()

	r, _ := NewAnthropicRecognizer(model.OCRConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := r.Recognize(context.Background(), Image{Data: pngImage})
	if err == nil || !strings.Contains(err.Error(), "image too small") {
		t.Errorf("Expected API error message, got %v", err)
	}
}

func TestOllamaRecognizer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if len(req.Images) != 1 || req.Stream {
			t.Errorf("Expected one image and no streaming, got %+v", req)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llava",
			Response:        "  카라기난, 잔탄검  ",
			Done:            true,
			PromptEvalCount: 7,
			EvalCount:       3,
		})
	}))
	defer server.Close()

	r, err := NewOllamaRecognizer(model.OCRConfig{BaseURL: server.URL, Model: "llava"})
	if err != nil {
		t.Fatalf("Failed to create recognizer: %v", err)
	}

	res, err := r.Recognize(context.Background(), Image{Data: pngImage})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if res.Text != "카라기난, 잔탄검" || res.Tokens != 10 {
		t.Errorf("Unexpected result: %+v", res)
	}
}

func TestOllamaRecognizer_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": `))
	}))
	defer server.Close()

	r, _ := NewOllamaRecognizer(model.OCRConfig{BaseURL: server.URL, Model: "llava"})
	if _, err := r.Recognize(context.Background(), Image{Data: pngImage}); err == nil {
		t.Error("Expected error for malformed JSON, got nil")
	}
}

func TestRecognizers_RejectEmptyImage(t *testing.T) {
	openaiRec, _ := NewOpenAIRecognizer(model.OCRConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	anthropicRec, _ := NewAnthropicRecognizer(model.OCRConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	ollamaRec, _ := NewOllamaRecognizer(model.OCRConfig{Model: "llava", BaseURL: "http://127.0.0.1:1"})

	for _, r := range []Recognizer{openaiRec, anthropicRec, ollamaRec} {
		if _, err := r.Recognize(context.Background(), Image{}); err != ErrEmptyImage {
			t.Errorf("%s: expected ErrEmptyImage before any request, got %v", r.Name(), err)
		}
	}
}

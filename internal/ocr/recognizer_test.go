package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/additivelens/additivelens/internal/model"
)

// pngImage is enough of a PNG for content sniffing
var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func TestPrepare(t *testing.T) {
	img, err := Prepare(Image{Data: pngImage}, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("Expected detected image/png, got %s", img.MIMEType)
	}

	img, err = Prepare(Image{Data: pngImage, MIMEType: "Image/JPEG; charset=binary"}, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if img.MIMEType != "image/jpeg" {
		t.Errorf("Expected declared type to be normalized, got %s", img.MIMEType)
	}
}

func TestPrepare_Errors(t *testing.T) {
	if _, err := Prepare(Image{}, 0); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
	if _, err := Prepare(Image{Data: pngImage}, 4); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Expected ErrImageTooLarge, got %v", err)
	}
	if _, err := Prepare(Image{Data: []byte("just some text")}, 0); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("Expected ErrUnsupportedImage, got %v", err)
	}
}

func TestImage_DataURL(t *testing.T) {
	img := Image{Data: []byte("abc"), MIMEType: "image/png"}
	if got := img.DataURL(); got != "data:image/png;base64,YWJj" {
		t.Errorf("Unexpected data URL: %s", got)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  구연산, 젖산  ", "구연산, 젖산"},
		{"```\n구연산\n```", "구연산"},
		{"```text\n원재료명: 구연산\n정제수\n```", "원재료명: 구연산\n정제수"},
		{"```", ""},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStaticRecognizer(t *testing.T) {
	r := NewStaticRecognizer("구연산")

	res, err := r.Recognize(context.Background(), Image{Data: pngImage})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Text != "구연산" || res.Provider != ProviderStatic {
		t.Errorf("Unexpected result: %+v", res)
	}

	if _, err := r.Recognize(context.Background(), Image{}); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Recognize(ctx, Image{Data: pngImage}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNew(t *testing.T) {
	r, err := New(model.OCRConfig{})
	if err != nil || r != nil {
		t.Errorf("Expected disabled recognizer, got %v, %v", r, err)
	}

	tests := []struct {
		cfg  model.OCRConfig
		name string
	}{
		{model.OCRConfig{Provider: "openai", APIKey: "k"}, ProviderOpenAI},
		{model.OCRConfig{Provider: "anthropic", APIKey: "k"}, ProviderAnthropic},
		{model.OCRConfig{Provider: "claude", APIKey: "k"}, ProviderAnthropic},
		{model.OCRConfig{Provider: "Ollama", Model: "llava"}, ProviderOllama},
		{model.OCRConfig{Provider: "static"}, ProviderStatic},
	}
	for _, tt := range tests {
		r, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", tt.cfg.Provider, err)
		}
		if r.Name() != tt.name {
			t.Errorf("Expected %s, got %s", tt.name, r.Name())
		}
	}

	if _, err := New(model.OCRConfig{Provider: "tesseract"}); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
	if _, err := New(model.OCRConfig{Provider: "openai"}); err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("Expected missing API key error, got %v", err)
	}
	if _, err := New(model.OCRConfig{Provider: "ollama"}); err == nil {
		t.Error("Expected error for ollama without a model")
	}
}

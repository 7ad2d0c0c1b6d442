package ocr

import (
	"fmt"
	"strings"

	"github.com/additivelens/additivelens/internal/model"
)

// Provider names accepted in ocr.provider
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderStatic    = "static"
)

// New creates the recognizer described by cfg. An empty provider disables
// OCR and returns nil.
func New(cfg model.OCRConfig) (Recognizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		r, err := NewOpenAIRecognizer(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil

	case ProviderAnthropic, "claude":
		r, err := NewAnthropicRecognizer(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil

	case ProviderOllama:
		r, err := NewOllamaRecognizer(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil

	case ProviderStatic:
		return NewStaticRecognizer(cfg.StaticText), nil

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %s (supported: %s, %s, %s, %s)",
			ErrUnknownProvider, cfg.Provider, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderStatic)
	}
}

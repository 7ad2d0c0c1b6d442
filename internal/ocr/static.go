package ocr

import "context"

// StaticRecognizer returns fixed text for every image. It backs offline demos
// and tests of the scan path.
type StaticRecognizer struct {
	text string
}

// NewStaticRecognizer creates a static recognizer
func NewStaticRecognizer(text string) *StaticRecognizer {
	return &StaticRecognizer{text: text}
}

// Name returns the provider name
func (r *StaticRecognizer) Name() string {
	return ProviderStatic
}

// Recognize returns the configured text once ctx and img are valid
func (r *StaticRecognizer) Recognize(ctx context.Context, img Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := Prepare(img, 0); err != nil {
		return nil, err
	}
	return &Result{Text: r.text, Provider: ProviderStatic}, nil
}

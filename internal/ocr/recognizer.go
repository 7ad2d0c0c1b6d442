// Package ocr reads the text printed on a food label image. The recognizers
// are thin clients over vision-capable model APIs; search treats whatever
// text they return as untrusted input.
package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrEmptyImage is returned for an image without data
	ErrEmptyImage = errors.New("empty image")
	// ErrImageTooLarge is returned for an image above the configured limit
	ErrImageTooLarge = errors.New("image too large")
	// ErrUnsupportedImage is returned for data that is not a supported image type
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrUnknownProvider is returned for an unsupported ocr.provider
	ErrUnknownProvider = errors.New("unknown OCR provider")
)

// Prompt instructs the vision model to transcribe rather than interpret
const Prompt = `Transcribe every piece of text printed on this food label exactly as it appears.
Include the full ingredient list with all additives, E-numbers and parenthesized sub-ingredients.
Keep the original language and line breaks. Do not translate, summarize, explain or add anything.
If there is no readable text, answer with an empty response.`

// Recognizer extracts text from an image
type Recognizer interface {
	// Name returns the provider name
	Name() string

	// Recognize returns the text found in img
	Recognize(ctx context.Context, img Image) (*Result, error)
}

// Image is an encoded label photo
type Image struct {
	Data     []byte
	MIMEType string // detected from Data when empty
}

// Result is the recognized text with provider metadata
type Result struct {
	Text     string
	Provider string
	Model    string
	Duration time.Duration
	Tokens   int
}

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Prepare validates img against maxBytes and fills in its MIME type.
// A non-positive maxBytes disables the size check.
func Prepare(img Image, maxBytes int64) (Image, error) {
	if len(img.Data) == 0 {
		return img, ErrEmptyImage
	}
	if maxBytes > 0 && int64(len(img.Data)) > maxBytes {
		return img, fmt.Errorf("%w: %d bytes exceeds %d", ErrImageTooLarge, len(img.Data), maxBytes)
	}

	mime := strings.ToLower(strings.TrimSpace(img.MIMEType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(img.Data)
	}
	if !supportedTypes[mime] {
		return img, fmt.Errorf("%w: %s", ErrUnsupportedImage, mime)
	}

	img.MIMEType = mime
	return img, nil
}

// Base64 returns the standard base64 encoding of the image data
func (img Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// DataURL returns the image as a data: URL
func (img Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + img.Base64()
}

// newProxyFunc selects explicit proxies, falling back to the environment
func newProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func newHTTPClient(timeout time.Duration, httpProxy, httpsProxy string) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: newProxyFunc(httpProxy, httpsProxy),
		},
	}
}

// cleanText trims model output and strips a wrapping code fence some models add
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

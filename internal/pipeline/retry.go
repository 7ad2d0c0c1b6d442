package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/additivelens/additivelens/internal/ocr"
)

// retryBackoff is the delay before the second attempt; it doubles after that
const retryBackoff = 500 * time.Millisecond

// retrySleepFunc waits between attempts; tests replace it
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// recognize calls the recognizer, retrying transient provider errors with
// exponential backoff. Every attempt waits on the provider's rate limit.
func (p *Pipeline) recognize(ctx context.Context, img ocr.Image) (*ocr.Result, error) {
	var lastErr error

	for attempt := 1; attempt <= p.attempts; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx, p.recognizer.Name()); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}

		res, err := p.recognizer.Recognize(ctx, img)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !ocr.IsRetryable(err) || attempt == p.attempts {
			break
		}

		backoff := retryBackoff << (attempt - 1)
		p.logger.Warn("OCR attempt failed, retrying",
			"provider", p.recognizer.Name(),
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		if err := retrySleepFunc(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Retrier executes HTTP requests with exponential backoff on 5xx and
// transport failures. Meant for idempotent side channels (webhooks); order
// placement must never go through a retrier.
type Retrier struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var Default = Retrier{
	Attempts:  3,
	BaseDelay: 1 * time.Second,
	MaxDelay:  10 * time.Second,
}

// Do runs buildReq on every attempt so request bodies are fresh each time.
func (r Retrier) Do(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error)) (*http.Response, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = Default.Attempts
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}

		if attempt == attempts {
			break
		}

		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"of":      attempts,
			"delay":   delay.String(),
		}).Warnf("request failed, retrying: %v", lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if r.MaxDelay > 0 && delay > r.MaxDelay {
			delay = r.MaxDelay
		}
	}

	return nil, fmt.Errorf("all %d attempts failed, last error: %w", attempts, lastErr)
}

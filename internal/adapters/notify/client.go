// Package notify delivers guest email and SMS through SendGrid, Mailtrap and Twilio.
package notify

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/observability"
)

var (
	ErrUnauthorized = errors.New("notify: provider rejected credentials")
	ErrRejected     = errors.New("notify: provider rejected message")
)

const maxAttempts = 4

// client is the shared outbound HTTP plumbing: client-side rate limiting, retries on 429 and
// transient 5xx honoring Retry-After, and provider metrics.
type client struct {
	service string
	hc      *http.Client
	rl      *rate.Limiter
	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

func newClient(service string, hc *http.Client, rps int) *client {
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	if rps <= 0 {
		rps = 5
	}
	return &client{
		service: service,
		hc:      hc,
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
		sleep:   sleepCtx,
	}
}

// do sends the request built by newReq, retrying transient failures. newReq is called per
// attempt so bodies are fresh.
func (c *client) do(ctx context.Context, endpoint string, newReq func(ctx context.Context) (*http.Request, error)) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := newReq(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", "wedding-rsvp-api/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(c.service, endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && c.sleep(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(c.service, endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("%s %d: %w", c.service, resp.StatusCode, ErrUnauthorized)

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%s remote %d", c.service, resp.StatusCode)
			if i < maxAttempts-1 && c.sleep(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%s %d: %s: %w", c.service, resp.StatusCode, strings.TrimSpace(string(b)), ErrRejected)
		}
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

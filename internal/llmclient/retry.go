// internal/llmclient/retry.go
package llmclient

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
)

func newBackOff(cfg config.LLMConfig) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 4 * time.Second
	b.MaxElapsedTime = cfg.MaxRetryElapsed
	if cfg.MaxRetryElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	return b
}

// newLimiter returns a limiter for cfg.RateLimit requests per second. A zero
// rate disables limiting.
func newLimiter(cfg config.LLMConfig) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

// retryable marks errors that should not be retried as permanent. Transport
// failures and 429/500/502/503 responses are retried.
func retryable(err error) error {
	if err == nil {
		return nil
	}
	var ie *schemas.InferenceError
	if !errors.As(err, &ie) {
		return backoff.Permanent(err)
	}
	switch ie.Kind {
	case schemas.InferenceTransport:
		return err
	case schemas.InferenceNon200:
		switch ie.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return err
		}
	}
	return backoff.Permanent(err)
}

// asInferenceError guarantees callers always see a typed failure; context
// errors surfacing from the retry loop are transport failures.
func asInferenceError(err error) error {
	var ie *schemas.InferenceError
	if errors.As(err, &ie) {
		return ie
	}
	return &schemas.InferenceError{Kind: schemas.InferenceTransport, Err: err}
}

// withDefaults fills zero options from the configured turn defaults.
func withDefaults(opts schemas.GenerationOptions, cfg config.LLMConfig) schemas.GenerationOptions {
	if opts.Temperature == 0 {
		opts.Temperature = cfg.Temperature
	}
	if opts.TopP == 0 {
		opts.TopP = cfg.TopP
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = cfg.MaxTokens
	}
	return opts
}

func clampInt32(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}

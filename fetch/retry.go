package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

type retrying struct {
	next    Fetcher
	retries uint64
	base    time.Duration
	logger  zerolog.Logger
}

// WithRetry wraps next in a Fibonacci backoff policy for transient failures.
// With retries <= 0 it returns next unchanged; nothing retries by default.
func WithRetry(logger zerolog.Logger, next Fetcher, retries int, base time.Duration) Fetcher {
	if retries <= 0 {
		return next
	}

	return &retrying{
		next:    next,
		retries: uint64(retries),
		base:    base,
		logger:  logger,
	}
}

func (r *retrying) Fetch(ctx context.Context, url string) ([]byte, error) {
	var (
		out     []byte
		attempt int
	)
	err := retry.Do(
		ctx,
		retry.WithMaxRetries(r.retries, retry.NewFibonacci(r.base)),
		func(ctx context.Context) error {
			attempt++
			b, err := r.next.Fetch(ctx, url)
			if nil != err {
				if Transient(err) {
					r.logger.Warn().Err(err).Int("attempt", attempt).Str("url", url).Msg("Transient fetch failure")
					return retry.RetryableError(err)
				}

				return err
			}
			out = b

			return nil
		},
	)
	if nil != err {
		return nil, err
	}

	return out, nil
}

// Transient reports whether err is worth another attempt: throttling, server
// errors and network timeouts.
func Transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrTooManyRequests) {
		return true
	}

	if statusErr := (*StatusError)(nil); errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}

	if netErr := net.Error(nil); errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

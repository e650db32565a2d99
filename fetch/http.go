package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/xeptore/ytmdl/cache"
	"github.com/xeptore/ytmdl/config"
	"github.com/xeptore/ytmdl/httputil"
	"github.com/xeptore/ytmdl/ratelimit"
	"github.com/xeptore/ytmdl/types"
)

var ErrTooManyRequests = errors.New("too many requests")

type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected status code " + strconv.Itoa(e.Code)
}

type HTTP struct {
	logger    zerolog.Logger
	timeout   time.Duration
	userAgent string
	limiter   *rate.Limiter
	pages     *cache.Store[[]byte]
	ttl       time.Duration
}

func NewHTTP(logger zerolog.Logger, conf config.Fetch, c *cache.Cache) *HTTP {
	return &HTTP{
		logger:    logger,
		timeout:   conf.Timeout.Duration,
		userAgent: conf.UserAgent,
		limiter:   ratelimit.NewLimiter(conf.RatePerSecond),
		pages:     c.Pages,
		ttl:       conf.CacheTTL.Duration,
	}
}

func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	if h.ttl <= 0 {
		return h.get(ctx, url)
	}

	b, err := h.pages.Fetch(url, h.ttl, func() ([]byte, error) { return h.get(ctx, url) })
	if nil != err {
		return nil, err
	}

	return b, nil
}

func (h *HTTP) get(ctx context.Context, url string) (b []byte, err error) {
	logger := h.logger.With().Str("url", url).Logger()

	if err := h.limiter.Wait(ctx); nil != err {
		return nil, types.FetchFailed("rate limit", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if nil != err {
		return nil, types.FetchFailed("request", url, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	// Skips the consent interstitial some hosts serve to EU clients.
	req.Header.Set("Cookie", "SOCS=CAI")

	client := http.Client{ //nolint:exhaustruct
		Timeout: h.timeout,
	}

	logger.Debug().Msg("Sending request")
	resp, err := client.Do(req)
	if nil != err {
		logger.Error().Err(err).Msg("Failed to send request")
		return nil, types.FetchFailed("request", url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			logger.Error().Err(closeErr).Msg("Failed to close response body")
			err = errors.Join(err, fmt.Errorf("failed to close response body: %v", closeErr))
		}
	}()

	switch code := resp.StatusCode; code {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		logger.Warn().Msg("Throttled by remote host")
		return nil, types.FetchFailed("response", url, ErrTooManyRequests)
	default:
		logger.Error().Int("status_code", code).Msg("Unexpected response status code")
		return nil, types.FetchFailed("response", url, &StatusError{Code: code})
	}

	b, err = httputil.ReadResponseBody(resp)
	if nil != err {
		logger.Error().Err(err).Msg("Failed to read response body")
		return nil, types.FetchFailed("body", url, err)
	}
	logger.Debug().Int("size", len(b)).Msg("Response received")

	return b, nil
}

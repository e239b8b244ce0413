// Package fetch retrieves pages and assets with browser-like request headers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/matheuskafuri/phnews/internal/logger"
)

// DefaultUserAgent is a desktop Chrome string; the site serves a reduced page
// to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var ErrUnexpectedStatus = errors.New("unexpected status code")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

type Options struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BypassCloudflare  bool
}

// Fetcher is safe for concurrent use. Requests are never retried.
type Fetcher struct {
	client *resty.Client
	log    logger.Logger
}

func New(opts Options, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New()
	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(0)
	client.SetHeaders(map[string]string{
		"User-Agent":      opts.UserAgent,
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	})

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &Fetcher{client: client, log: log.With(logger.Component("fetch"))}
}

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"

// FetchHTML GETs url and returns the body as text.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	resp, err := f.get(ctx, url, acceptHTML)
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// FetchBytes GETs url and returns the raw body with its content type.
func (f *Fetcher) FetchBytes(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := f.get(ctx, url, "*/*")
	if err != nil {
		return nil, "", err
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}

func (f *Fetcher) get(ctx context.Context, url, accept string) (*resty.Response, error) {
	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", accept).
		Get(url)
	if err != nil {
		f.log.Debug("request failed", logger.URL(url), logger.Err(err))
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	f.log.Debug("fetched",
		logger.URL(url),
		logger.Int("status", resp.StatusCode()),
		logger.Int("bytes", len(resp.Body())),
		logger.Duration("took", time.Since(start)),
	)
	if !resp.IsSuccess() {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode()}
	}
	return resp, nil
}

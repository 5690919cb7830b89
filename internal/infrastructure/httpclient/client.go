package httpclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/pkg/metrics"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const maxErrorBodyLen = 512

// StandardRetryable are the statuses retried for every source except Moralis.
var StandardRetryable = []int{429, 500, 501, 502, 503}

// RetryPolicy describes how one upstream source treats failures.
type RetryPolicy struct {
	Source    string
	Retryable []int
	Fatal     []int
	Backoff   time.Duration
}

// DefaultPolicy retries rate limiting and server errors; 401 and 403 are fatal.
func DefaultPolicy(source string, backoff time.Duration) RetryPolicy {
	return RetryPolicy{
		Source:    source,
		Retryable: StandardRetryable,
		Fatal:     []int{401, 403},
		Backoff:   backoff,
	}
}

// QuotaPolicy is DefaultPolicy for a source whose 429 means the daily quota is spent.
func QuotaPolicy(source string, backoff time.Duration) RetryPolicy {
	return RetryPolicy{
		Source:    source,
		Retryable: []int{500, 501, 502, 503},
		Fatal:     []int{401, 403, 429},
		Backoff:   backoff,
	}
}

func contains(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// Request is a single upstream call.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        []byte
	ContentType string
	// SafeURL replaces URL in logs and errors when the URL carries a secret.
	SafeURL string
}

func (r Request) logURL() string {
	if r.SafeURL != "" {
		return r.SafeURL
	}
	return r.URL
}

// Client executes requests with fasthttp and retries them in place according to a RetryPolicy.
// Retryable failures are retried without an attempt limit; only ctx cancellation ends the wait.
type Client struct {
	http    *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Client. timeout bounds a single attempt when ctx carries no deadline.
func New(timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &fasthttp.Client{
			Name:                          "balance-tracker",
			MaxConnsPerHost:               64,
			DisableHeaderNamesNormalizing: true,
		},
		timeout: timeout,
		logger:  logger.Named("httpclient"),
		metrics: m,
	}
}

// Do sends req until it succeeds, fails permanently, or ctx is done. It returns the response body of a 2xx answer.
func (c *Client) Do(ctx context.Context, policy RetryPolicy, req Request) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		status, body, err := c.once(ctx, req)

		var reason string
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			reason = "transport"
			c.logger.Warn("Upstream request failed, retrying",
				zap.String("source", policy.Source),
				zap.String("url", req.logURL()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", policy.Backoff),
				zap.Error(err))
		case status >= 200 && status < 300:
			return body, nil
		case contains(policy.Fatal, status) || !contains(policy.Retryable, status):
			return nil, &entity.UpstreamError{
				Source:     policy.Source,
				URL:        req.logURL(),
				StatusCode: status,
				Body:       excerpt(body),
				Fatal:      contains(policy.Fatal, status),
			}
		default:
			reason = strconv.Itoa(status)
			c.logger.Warn("Upstream answered with retryable status, retrying",
				zap.String("source", policy.Source),
				zap.String("url", req.logURL()),
				zap.Int("statusCode", status),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", policy.Backoff))
		}

		c.metrics.RecordRetry(policy.Source, reason)
		if err := sleep(ctx, policy.Backoff); err != nil {
			return nil, err
		}
	}
}

func (c *Client) once(ctx context.Context, r Request) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.SetRequestURI(r.URL)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if len(r.Body) > 0 {
		contentType := r.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.SetContentType(contentType)
		req.SetBody(r.Body)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.http.DoDeadline(req, resp, deadline); err != nil {
			return 0, nil, fmt.Errorf("failed to execute request to %s: %w", r.logURL(), err)
		}
	} else {
		if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
			return 0, nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", r.logURL(), err)
		}
	}

	// тело принадлежит resp и освобождается вместе с ним
	body := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func excerpt(body []byte) string {
	if len(body) > maxErrorBodyLen {
		return string(body[:maxErrorBodyLen]) + "..."
	}
	return string(body)
}

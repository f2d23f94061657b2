// Package backend is the REST client for the shop backend: debts and
// shipments, converted to LedgerRecord at the wire boundary.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/logging"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Default client settings.
const (
	DefaultDebtsPath      = "/api/debts"
	DefaultShipmentsPath  = "/api/wagons"
	DefaultTimeout        = 15 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryInterval  = 300 * time.Millisecond
	ItemFormatV2          = "v2"
	ItemFormatLegacy      = "legacy"
	idempotencyKeyHeader  = "Idempotency-Key"
	maxResponseBodyLength = 10 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL       string
	DebtsPath     string
	ShipmentsPath string
	ShopID        string
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	// ItemFormat is the product_names encoding for writes: ItemFormatV2
	// (default) or ItemFormatLegacy.
	ItemFormat string
	// Transport is the innermost RoundTripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	opts    Options
	http    *http.Client
	logger  logging.Logger
	tracker *Tracker
}

// NewClient builds a Client whose transport runs the logging, session and
// auth middlewares, in that order, in front of opts.Transport.
func NewClient(opts Options, creds Credentials, policy SessionPolicy, logger logging.Logger) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, &ledgererror.ValidationError{Field: "backend.base_url", Reason: "must not be empty"}
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &ledgererror.ValidationError{Field: "backend.base_url", Reason: "must be an absolute URL", Err: err}
	}
	if opts.DebtsPath == "" {
		opts.DebtsPath = DefaultDebtsPath
	}
	if opts.ShipmentsPath == "" {
		opts.ShipmentsPath = DefaultShipmentsPath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	switch opts.ItemFormat {
	case "":
		opts.ItemFormat = ItemFormatV2
	case ItemFormatV2, ItemFormatLegacy:
	default:
		return nil, &ledgererror.ValidationError{Field: "backend.item_format", Reason: fmt.Sprintf("unknown item format %q", opts.ItemFormat)}
	}

	logger = logger.WithField(logging.FieldComponent, "BackendClient")
	transport := Chain(opts.Transport,
		LoggingMiddleware(logger),
		SessionMiddleware(policy, logger),
		AuthMiddleware(creds),
	)

	return &Client{
		baseURL: base,
		opts:    opts,
		http:    &http.Client{Transport: transport},
		logger:  logger,
		tracker: NewTracker(),
	}, nil
}

// Tracker exposes the client's stale-response tracker.
func (c *Client) Tracker() *Tracker {
	return c.tracker
}

// ShopID is the configured shop id sent on writes.
func (c *Client) ShopID() string {
	return c.opts.ShopID
}

func (c *Client) endpoint(path string, segments ...string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	for _, s := range segments {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + url.PathEscape(s)
	}
	return u.String()
}

// get performs an idempotent read, retrying transient failures with
// exponential backoff.
func (c *Client) get(ctx context.Context, op, target string) ([]byte, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.opts.RetryInterval
	expo.MaxElapsedTime = 0
	expo.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.opts.MaxRetries)), ctx)

	attempt := 0
	var body []byte
	err := backoff.RetryNotify(func() error {
		attempt++
		var err error
		body, err = c.do(ctx, op, http.MethodGet, target, nil, nil)
		if err != nil && !ledgererror.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.logger.WithError(err).Warn("Retrying backend read",
			logging.F(logging.FieldOperation, op),
			logging.F(logging.FieldAttempt, attempt),
			logging.F(logging.FieldDuration, wait.String()))
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// send performs a write exactly once, tagged with a fresh idempotency key.
func (c *Client) send(ctx context.Context, op, method, target string, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
	}
	key := uuid.NewString()
	headers := http.Header{}
	headers.Set(idempotencyKeyHeader, key)
	c.logger.Debug("Sending backend write",
		logging.F(logging.FieldOperation, op),
		logging.F(logging.FieldRequestID, key))
	return c.do(ctx, op, method, target, body, headers)
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte, headers http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ledgererror.TransportError{Op: op, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Warn("Failed to close response body")
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLength))
	if err != nil {
		return nil, &ledgererror.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ledgererror.APIError{Op: op, Status: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

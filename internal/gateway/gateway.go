// Package gateway is the client for the remote alert store. Each operation is
// a single request/response exchange with a bounded timeout; callers see only
// the coarse success contract, the detailed cause goes to the log.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "crypto-alert-bot/internal/errors"
	"crypto-alert-bot/internal/logging"
)

// Alert kinds accepted by the store.
const (
	KindSingle = "single"
	KindRatio  = "ratio"
)

// DefaultTimeout bounds one gateway exchange.
const DefaultTimeout = 15 * time.Second

// Alert is a stored alert as returned by the list operation. Remote-owned;
// the client only ever requests creation or deletion.
type Alert struct {
	GUID        string  `json:"guid"`
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	Operator    string  `json:"operator"`
	Description string  `json:"description"`
}

// Payload is the create-alert request body. Operator must be the canonical
// symbol, never a display-escaped form.
type Payload struct {
	Kind        string  `json:"type"`
	Symbol      string  `json:"symbol,omitempty"`
	Symbol1     string  `json:"symbol1,omitempty"`
	Symbol2     string  `json:"symbol2,omitempty"`
	Price       float64 `json:"price"`
	Operator    string  `json:"operator"`
	Description string  `json:"description"`
}

// Config holds the three endpoint URLs and the shared access key. The
// endpoints are independent values; no operation name is ever derived from
// another URL at request time.
type Config struct {
	CreateURL string
	ListURL   string
	DeleteURL string
	AccessKey string
	Timeout   time.Duration
}

// Validate checks that every endpoint is configured.
func (c Config) Validate() error {
	for name, value := range map[string]string{
		"create_url": c.CreateURL,
		"list_url":   c.ListURL,
		"delete_url": c.DeleteURL,
	} {
		if value == "" {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "gateway %s is empty", name)
		}
		if _, err := url.Parse(value); err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "gateway %s: %v", name, err)
		}
	}
	return nil
}

// Client performs typed operations against the alert store. Every operation
// is single-shot: one request per call, bounded by the configured timeout,
// never retried. Recovery is the caller's (or the user's) decision.
type Client struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// NewClient creates a gateway client from explicit configuration.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// CreateAlert registers a new alert. It returns true iff the store answered
// with HTTP 200; every other outcome is false and logged.
func (c *Client) CreateAlert(ctx context.Context, payload Payload) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("Marshaling create payload")
		return false
	}

	_, err = c.exchange(ctx, "create", http.MethodPost, c.cfg.CreateURL, body)
	return err == nil
}

// ListAlerts fetches all stored alerts. On any failure it returns a nil slice
// together with the cause; callers that only care about the user-visible
// contract may ignore the error and treat nil as "no alerts".
func (c *Client) ListAlerts(ctx context.Context) ([]Alert, error) {
	data, err := c.exchange(ctx, "list", http.MethodGet, c.cfg.ListURL, nil)
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		gerr := apperrors.NewGatewayError("list", 0, fmt.Errorf("decoding body: %w", err))
		c.logger.Error().Err(gerr).Msg("Gateway list returned malformed body")
		return nil, gerr
	}
	return alerts, nil
}

// DeleteAlert removes the alert with the given id. Deleting an id twice is
// safe; the second call simply reports false.
func (c *Client) DeleteAlert(ctx context.Context, guid string) bool {
	body, err := json.Marshal(map[string]string{"guid": guid})
	if err != nil {
		c.logger.Error().Err(err).Msg("Marshaling delete payload")
		return false
	}

	_, err = c.exchange(ctx, "delete", http.MethodPost, c.cfg.DeleteURL, body)
	return err == nil
}

// exchange runs one request against an endpoint and enforces the common
// success contract (HTTP 200). The returned error is always a *GatewayError.
func (c *Client) exchange(ctx context.Context, operation, method, endpoint string, body []byte) ([]byte, error) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	target, err := url.Parse(endpoint)
	if err != nil {
		gerr := apperrors.NewGatewayError(operation, 0, err)
		logging.LogGatewayCall(c.logger, operation, requestID, 0, time.Since(start), gerr)
		return nil, gerr
	}
	if c.cfg.AccessKey != "" {
		query := target.Query()
		query.Set("code", c.cfg.AccessKey)
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		gerr := apperrors.NewGatewayError(operation, 0, err)
		logging.LogGatewayCall(c.logger, operation, requestID, 0, time.Since(start), gerr)
		return nil, gerr
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		gerr := apperrors.NewGatewayError(operation, 0, err)
		logging.LogGatewayCall(c.logger, operation, requestID, 0, time.Since(start), gerr)
		return nil, gerr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		gerr := apperrors.NewGatewayError(operation, 0, err)
		logging.LogGatewayCall(c.logger, operation, requestID, resp.StatusCode, time.Since(start), gerr)
		return nil, gerr
	}

	if resp.StatusCode != http.StatusOK {
		gerr := apperrors.NewGatewayError(operation, resp.StatusCode, nil)
		logging.LogGatewayCall(c.logger, operation, requestID, resp.StatusCode, time.Since(start), gerr)
		return nil, gerr
	}

	logging.LogGatewayCall(c.logger, operation, requestID, resp.StatusCode, time.Since(start), nil)
	return data, nil
}

// Package telegram is a thin typed client for the Bot API surface the alert
// bot consumes: long-poll updates, outbound messages, and webhook teardown.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "crypto-alert-bot/internal/errors"
)

// DefaultAPIURL is the production Bot API host.
const DefaultAPIURL = "https://api.telegram.org"

// requestTimeout bounds every non-polling API call.
const requestTimeout = 10 * time.Second

// Client talks to the Bot API over HTTP.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a Bot API client for the given token.
func NewClient(token string, logger zerolog.Logger) *Client {
	return NewClientWithURL(token, DefaultAPIURL, logger)
}

// NewClientWithURL creates a client against a non-default API host.
// Tests point this at a local server.
func NewClientWithURL(token, baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  logger,
	}
}

// call performs one Bot API method invocation and decodes the result.
func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling %s payload: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s request: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decoding %s response (status %d): %w", method, resp.StatusCode, err)
	}

	if !envelope.OK {
		code := envelope.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		switch code {
		case http.StatusConflict:
			return apperrors.Wrapf(apperrors.ErrConflict, "%s: %s", method, envelope.Description)
		case http.StatusUnauthorized:
			return apperrors.Wrapf(apperrors.ErrNotAuthorized, "%s: %s", method, envelope.Description)
		}
		return fmt.Errorf("%s returned error %d: %s", method, code, envelope.Description)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// GetMe fetches the bot's own identity.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for pending updates. A timeout of zero makes the call
// return immediately with whatever is buffered.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration, limit int) ([]Update, error) {
	// The HTTP deadline must outlast the server-side poll window.
	ctx, cancel := context.WithTimeout(ctx, timeout+requestTimeout)
	defer cancel()

	payload := map[string]interface{}{
		"timeout": int(timeout.Seconds()),
		"limit":   limit,
	}
	if offset != 0 {
		payload["offset"] = offset
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends a text message, optionally with a keyboard.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallbackQuery acknowledges a button press so the client stops the
// loading spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	payload := map[string]interface{}{"callback_query_id": callbackID}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// DeleteWebhook removes any registered push endpoint so long polling is the
// sole delivery path. With dropPending set, buffered updates are discarded.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	payload := map[string]interface{}{"drop_pending_updates": dropPending}
	return c.call(ctx, "deleteWebhook", payload, nil)
}

// EscapeHTML escapes text for HTML parse mode. Applied at render time only;
// stored values stay canonical.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

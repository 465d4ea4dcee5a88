package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender posts Markdown messages through the Bot API sendMessage
// call. Network errors and 5xx responses are retried with a linear backoff;
// a 429 waits for the server's retry_after.
type TelegramSender struct {
	baseURL  string
	token    string
	chatID   string
	attempts int
	backoff  time.Duration
	client   *http.Client
}

// NewTelegramSender creates a TelegramSender that makes up to attempts tries
// per message (at least one).
func NewTelegramSender(token, chatID string, attempts int) *TelegramSender {
	if attempts < 1 {
		attempts = 1
	}
	return &TelegramSender{
		baseURL:  telegramAPI,
		token:    token,
		chatID:   chatID,
		attempts: attempts,
		backoff:  500 * time.Millisecond,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send delivers one message.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	body, err := json.Marshal(map[string]any{
		"chat_id":                  t.chatID,
		"text":                     fmt.Sprintf("*%s*\n\n%s", title, message),
		"parse_mode":               "Markdown",
		"disable_web_page_preview": false,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		wait, retry, err := t.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == t.attempts {
			break
		}
		if wait == 0 {
			wait = time.Duration(attempt) * t.backoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("telegram: send: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("telegram: send after %d attempt(s): %w", t.attempts, lastErr)
}

// post makes one request and reports whether a failure is worth retrying.
func (t *TelegramSender) post(ctx context.Context, body []byte) (wait time.Duration, retry bool, err error) {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, ctx.Err() == nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return 0, false, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var tr telegramResponse
	_ = json.Unmarshal(raw, &tr)
	err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, tr.Description)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return time.Duration(tr.Parameters.RetryAfter) * time.Second, true, err
	case resp.StatusCode >= 500:
		return 0, true, err
	}
	return 0, false, err
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}

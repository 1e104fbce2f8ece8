package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
)

const DefaultAPIURL = "https://api.telegram.org"

// APIError is a Bot API reply with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: %s: %d %s", e.Method, e.Code, e.Description)
}

type Bot struct {
	token     string
	apiURL    string
	client    *http.Client
	pollPause time.Duration
}

type Option func(*Bot)

// WithAPIURL points the client at another Bot API server.
func WithAPIURL(apiURL string) Option {
	return func(b *Bot) { b.apiURL = strings.TrimRight(apiURL, "/") }
}

func WithHTTPClient(client *http.Client) Option {
	return func(b *Bot) { b.client = client }
}

// WithPollPause sets the pause after a failed getUpdates call.
func WithPollPause(d time.Duration) Option {
	return func(b *Bot) { b.pollPause = d }
}

func NewBot(token string, opts ...Option) *Bot {
	b := &Bot{
		token:  token,
		apiURL: DefaultAPIURL,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		pollPause: 3 * time.Second,
	}

	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bot) GetUpdates(ctx context.Context, offset int64, timeout int) ([]entity.Update, error) {
	params := url.Values{}
	params.Add("offset", strconv.FormatInt(offset, 10))
	params.Add("timeout", strconv.Itoa(timeout))
	params.Add("allowed_updates", `["message"]`)

	var updates []entity.Update
	if err := b.postForm(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{}
	params.Add("chat_id", strconv.FormatInt(chatID, 10))
	params.Add("text", text)

	return b.postForm(ctx, "sendMessage", params, nil)
}

// SendPhoto uploads photo as multipart/form-data.
func (b *Bot) SendPhoto(ctx context.Context, chatID int64, filename string, photo []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(photo); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return b.call(ctx, "sendPhoto", &body, writer.FormDataContentType(), nil)
}

func (b *Bot) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	params := url.Values{}
	params.Add("url", webhookURL)
	params.Add("allowed_updates", `["message"]`)
	if secret != "" {
		params.Add("secret_token", secret)
	}
	return b.postForm(ctx, "setWebhook", params, nil)
}

func (b *Bot) DeleteWebhook(ctx context.Context) error {
	return b.postForm(ctx, "deleteWebhook", url.Values{}, nil)
}

func (b *Bot) postForm(ctx context.Context, method string, params url.Values, result interface{}) error {
	return b.call(ctx, method, strings.NewReader(params.Encode()), "application/x-www-form-urlencoded", result)
}

func (b *Bot) call(ctx context.Context, method string, body io.Reader, contentType string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL+"/bot"+b.token+"/"+method, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.client.Do(req)
	if err != nil {
		return redact(err)
	}
	defer resp.Body.Close()

	var envelope struct {
		entity.APIResponse
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: %s: %w", method, resp.Status, err)
	}

	if !envelope.OK {
		return &APIError{Method: method, Code: envelope.ErrorCode, Description: envelope.Description}
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// redact drops the request URL, it carries the bot token.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

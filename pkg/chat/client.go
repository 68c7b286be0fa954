//go:generate mockgen -source=$GOFILE -destination=client_mock.go -package=$GOPACKAGE

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"llm_dealer/pkg/types"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultModel    = "gpt-4"
	DefaultTimeout  = 60 * time.Second

	maxErrorBody = 512
)

var (
	ErrTransport = errors.New("request failed")
	ErrStatus    = errors.New("unexpected status")
	ErrDecode    = errors.New("malformed response")
	ErrNoChoices = errors.New("response contained no choices")
)

// StatusError is returned for any non-2xx reply. It matches ErrStatus.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %d", ErrStatus, e.StatusCode)
	}
	return fmt.Sprintf("%s %d: %s", ErrStatus, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Completer sends one system instruction and one user message and returns
// the text of the first choice.
type Completer interface {
	Complete(ctx context.Context, instructions, userText string) (string, error)
}

type Client struct {
	httpClient *resty.Client
	endpoint   string
	model      string
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTimeout bounds each request. Zero disables the timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.SetTimeout(timeout) }
}

func NewClient(apiKey string, opts ...Option) *Client {
	httpClient := resty.New()
	httpClient.SetHeader("Content-Type", "application/json")
	httpClient.SetAuthToken(apiKey)
	httpClient.SetTimeout(DefaultTimeout)

	c := &Client{
		httpClient: httpClient,
		endpoint:   DefaultEndpoint,
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, instructions, userText string) (string, error) {
	jsonBody, err := json.Marshal(types.NewChatRequest(c.model, instructions, userText))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(jsonBody).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return "", &StatusError{StatusCode: code, Body: truncate(string(resp.Body()), maxErrorBody)}
	}

	var chatResp types.ChatResponse
	if err := json.Unmarshal(resp.Body(), &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return chatResp.Choices[0].Message.Content, nil
}

// SendChat performs a single request with a throwaway Client. Without options
// it uses the default endpoint, model and timeout.
func SendChat(ctx context.Context, apiKey, instructions, userText string, opts ...Option) (string, error) {
	return NewClient(apiKey, opts...).Complete(ctx, instructions, userText)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

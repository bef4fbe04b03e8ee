// Package mailer sends transactional email through the MailerSend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/interview-dispatch/internal/schemas"
	embedded "github.com/jonathan/interview-dispatch/schemas"
)

// DefaultBaseURL is the MailerSend API root.
const DefaultBaseURL = "https://api.mailersend.com"

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

const emailPath = "/v1/email"

// maxErrorBody bounds how much of a failed response body is kept for diagnostics.
const maxErrorBody = 64 << 10

// Address is a sender or recipient.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message is the JSON body of POST /v1/email.
type Message struct {
	From    Address   `json:"from"`
	To      []Address `json:"to"`
	Subject string    `json:"subject"`
	Text    string    `json:"text"`
	HTML    string    `json:"html"`
}

// Sender delivers one message. *Client implements it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RatePerSecond limits outbound requests; 0 disables limiting.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client is a MailerSend API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client. An API key is required.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("mailersend API key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := opts.Burst
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// Send posts msg to the email endpoint. Only 200 and 202 count as accepted; any other
// status returns an *APIError carrying the response body.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}
	if err := schemas.ValidateDocument(embedded.Email, body); err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: "rate limit wait", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+emailPath, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: "create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "send request", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	if readErr != nil {
		apiErr.Body = fmt.Sprintf("(failed to read body: %v)", readErr)
	}
	return apiErr
}

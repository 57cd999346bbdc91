package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured is returned by clients without an endpoint
var ErrNotConfigured = errors.New("client not configured")

// EmailMessage is the request body sent to the email endpoint
type EmailMessage struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// EmailClient posts messages to an HTTP email relay
type EmailClient struct {
	client   *resty.Client
	endpoint string
	sender   string
}

// NewEmailClient creates an email client. An empty endpoint yields a client
// whose Send returns ErrNotConfigured.
func NewEmailClient(endpoint, apiKey, sender string) *EmailClient {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &EmailClient{client: client, endpoint: endpoint, sender: sender}
}

// Enabled reports whether an endpoint is configured
func (c *EmailClient) Enabled() bool {
	return c.endpoint != ""
}

// Send delivers one message
func (c *EmailClient) Send(ctx context.Context, to []string, subject, text string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(EmailMessage{From: c.sender, To: to, Subject: subject, Text: text}).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("email endpoint returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

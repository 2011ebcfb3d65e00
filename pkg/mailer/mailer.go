package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/maribelreyes/omflow-backend/pkg/config"
	apperrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

// Message is a single rendered outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered emails to the mail provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client sends mail through the SendGrid v3 send endpoint. Transient
// provider failures (429 and 5xx) are retried with exponential backoff
// inside a single Send call; anything else surfaces immediately.
type Client struct {
	cfg  config.MailerConfig
	http *http.Client
	logg *logger.Logger
}

func New(cfg config.MailerConfig, logg *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		logg: logg,
	}
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.cfg.APIKey == "" {
		return apperrors.New(apperrors.CodeDependency, "mailer api key not configured")
	}
	if msg.To == "" {
		return apperrors.New(apperrors.CodeValidation, "recipient is required")
	}

	body, err := json.Marshal(sendRequest{
		Personalizations: []personalization{
			{To: []address{{Email: msg.To}}},
		},
		From:    address{Email: c.cfg.From},
		Subject: msg.Subject,
		Content: []content{{Type: "text/html", Value: msg.HTML}},
	})
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.post(ctx, body)
	}); err != nil {
		return err
	}

	if c.logg != nil {
		c.logg.Info(c.logg.WithContact(ctx, msg.To), "email delivered to provider")
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("mail provider request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	providerErr := apperrors.New(apperrors.CodeDependency,
		fmt.Sprintf("mail provider status %d: %s", resp.StatusCode, string(detail)))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.RetryableError(providerErr)
	}
	return providerErr
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

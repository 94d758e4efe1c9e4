package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/httpclient"
)

const ChannelEmail = "email"

const sendgridBaseURL = "https://api.sendgrid.com"

// SendGridChannel manda email vía la API v3 de SendGrid.
type SendGridChannel struct {
	client    *httpclient.Client
	apiKey    string
	fromEmail string
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string

	// BaseURL permite apuntar a un servidor de prueba; vacío usa la API real.
	BaseURL string
}

func NewSendGridChannel(cfg SendGridConfig) (*SendGridChannel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid: missing api key")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, errors.New("sendgrid: missing from email")
	}

	base := cfg.BaseURL
	if base == "" {
		base = sendgridBaseURL
	}
	client, err := httpclient.NewWithBaseURL(base, httpclient.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	return &SendGridChannel{
		client:    client,
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
	}, nil
}

func (c *SendGridChannel) Name() string { return ChannelEmail }

type sendgridMail struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *SendGridChannel) Send(ctx context.Context, n Notification) error {
	to := strings.TrimSpace(n.Email)
	if to == "" {
		return errors.New("email: notification has no email address")
	}

	content := []sendgridContent{{Type: "text/plain", Value: n.Body}}
	if n.HTMLBody != "" {
		content = append(content, sendgridContent{Type: "text/html", Value: n.HTMLBody})
	}

	mail := sendgridMail{
		Personalizations: []sendgridPersonalization{{To: []sendgridAddress{{Email: to}}}},
		From:             sendgridAddress{Email: c.fromEmail},
		Subject:          n.Subject,
		Content:          content,
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}
	if err := c.client.DoJSON(ctx, "POST", "/v3/mail/send", headers, mail, nil); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}

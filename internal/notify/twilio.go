package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/httpclient"
)

const ChannelSMS = "sms"

const twilioBaseURL = "https://api.twilio.com"

// TwilioChannel manda SMS vía la API REST de Twilio.
type TwilioChannel struct {
	client     *httpclient.Client
	accountSID string
	fromNumber string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// BaseURL permite apuntar a un servidor de prueba; vacío usa la API real.
	BaseURL string
}

func NewTwilioChannel(cfg TwilioConfig) (*TwilioChannel, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("twilio: missing credentials")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("twilio: missing from number")
	}

	base := cfg.BaseURL
	if base == "" {
		base = twilioBaseURL
	}
	client, err := httpclient.NewWithBaseURL(base, httpclient.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	client.BasicUser = cfg.AccountSID
	client.BasicPass = cfg.AuthToken

	return &TwilioChannel{
		client:     client,
		accountSID: cfg.AccountSID,
		fromNumber: cfg.FromNumber,
	}, nil
}

func (c *TwilioChannel) Name() string { return ChannelSMS }

func (c *TwilioChannel) Send(ctx context.Context, n Notification) error {
	to := strings.TrimSpace(n.Phone)
	if to == "" {
		return errors.New("sms: notification has no phone number")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", n.Body)

	path := fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.accountSID)

	var resp struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := c.client.DoForm(ctx, path, nil, form, &resp); err != nil {
		return fmt.Errorf("sms: %w", err)
	}
	return nil
}

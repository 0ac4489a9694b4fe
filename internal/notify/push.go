package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Pusher delivers one notification to one device token.
type Pusher interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// PushConfig holds the delivery endpoint and the OAuth2 client-credential
// settings used to obtain short-lived bearer tokens for it.
type PushConfig struct {
	Endpoint     string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// FCMClient sends messages to an FCM-style HTTP v1 endpoint. Bearer tokens
// come from a client-credential exchange; the token source caches each
// token until it expires.
type FCMClient struct {
	http   *resty.Client
	tokens oauth2.TokenSource
	logger *zap.Logger
}

// NewFCMClient creates a push client bound to cfg.Endpoint.
func NewFCMClient(cfg PushConfig, logger *zap.Logger) *FCMClient {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &FCMClient{
		http:   client,
		tokens: creds.TokenSource(context.Background()),
		logger: logger,
	}
}

type pushMessage struct {
	Message struct {
		Token        string            `json:"token"`
		Notification pushNotification  `json:"notification"`
		Data         map[string]string `json:"data,omitempty"`
	} `json:"message"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers one notification. A credential refresh failure fails this
// one send only; the caller decides what to do with other devices.
func (c *FCMClient) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain push credential: %w", err)
	}

	var msg pushMessage
	msg.Message.Token = deviceToken
	msg.Message.Notification = pushNotification{Title: title, Body: body}
	msg.Message.Data = data

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetBody(msg).
		Post("")
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Debug("notification delivered",
		zap.String("title", title),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}

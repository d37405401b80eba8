// Package fcm provides Firebase Cloud Messaging push delivery
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/motortribe/motortribe/internal/notification/domain/model"
	"github.com/motortribe/motortribe/internal/platform/config"
)

// Provider implements push sending via the FCM HTTP API
type Provider struct {
	endpoint   string
	serverKey  string
	httpClient *http.Client
}

// NewProvider creates a new FCM provider
func NewProvider(cfg config.PushConfig) *Provider {
	return &Provider{
		endpoint:   cfg.FCMEndpoint,
		serverKey:  cfg.FCMServerKey,
		httpClient: &http.Client{},
	}
}

type fcmRequest struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Send delivers one notification. A blank device token is a silent skip,
// mirroring the caller-facing contract of best-effort push delivery.
func (p *Provider) Send(ctx context.Context, notification model.PushNotification) error {
	if notification.DeviceToken == "" {
		return nil
	}

	payload, err := json.Marshal(fcmRequest{
		To: notification.DeviceToken,
		Notification: fcmNotification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal FCM request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build FCM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.serverKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("FCM request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("FCM returned status %d: %s", resp.StatusCode, body)
	}

	var result fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode FCM response: %w", err)
	}
	if result.Failure > 0 && result.Success == 0 {
		return fmt.Errorf("FCM rejected the message")
	}

	return nil
}

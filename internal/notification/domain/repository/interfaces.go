// Package repository defines the notification domain's collaborator interfaces
package repository

import (
	"context"

	"github.com/motortribe/motortribe/internal/notification/domain/model"
)

// DeviceTokenRepository looks up registered push tokens
type DeviceTokenRepository interface {
	// LookupDeviceToken returns the user's registered device token, or
	// an empty string when the user has no device
	LookupDeviceToken(ctx context.Context, userID int64) (string, error)
}

// PushSender delivers a notification to the push provider, best-effort
type PushSender interface {
	Send(ctx context.Context, notification model.PushNotification) error
}

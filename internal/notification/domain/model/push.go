// Package model defines push notification domain models
package model

// PushNotification is a single message for a registered device
type PushNotification struct {
	DeviceToken string            `json:"deviceToken"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

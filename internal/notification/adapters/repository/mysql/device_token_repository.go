// Package mysql implements the notification module's MySQL lookups
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/motortribe/motortribe/internal/platform/database"
)

// DeviceTokenRepository reads registered push tokens
type DeviceTokenRepository struct {
	db *database.DB
}

// NewDeviceTokenRepository creates a new MySQL device token repository
func NewDeviceTokenRepository(db *database.DB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

// LookupDeviceToken returns the user's registered device token. A user
// without a device yields an empty string, not an error.
func (r *DeviceTokenRepository) LookupDeviceToken(ctx context.Context, userID int64) (string, error) {
	query := `SELECT COALESCE(DeviceToken, '') FROM Users WHERE UserID = ?`

	var token string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up device token: %w", err)
	}
	return token, nil
}

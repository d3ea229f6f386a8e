package models

import (
	"time"

	"github.com/google/uuid"
)

// SquareConnection stores one user's Square OAuth grant. Tokens are sealed at rest.
type SquareConnection struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	AccessToken  string    `gorm:"column:access_token;not null"`
	RefreshToken string    `gorm:"column:refresh_token;not null"`
	MerchantID   string    `gorm:"column:merchant_id;not null"`
	LocationID   *string   `gorm:"column:location_id"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/enums"
)

// User is the subscriber account that owns a Square connection and all derived rows.
type User struct {
	ID                 uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email              string                    `gorm:"type:text;not null;uniqueIndex"`
	BarName            *string                   `gorm:"column:bar_name"`
	// BarLocation is free text such as "Austin, TX"; Timezone drives bucketing.
	BarLocation        *string                   `gorm:"column:location"`
	Timezone           *string                   `gorm:"column:timezone"`
	Plan               enums.Plan                `gorm:"column:plan;type:text;not null;default:none"`
	SubscriptionStatus *enums.SubscriptionStatus `gorm:"column:subscription_status;type:text"`
	SquareConnected    bool                      `gorm:"column:square_connected;not null;default:false"`
	OnboardingComplete bool                      `gorm:"column:onboarding_complete;not null;default:false"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayBarName falls back to a generic name when onboarding never captured one.
func (u User) DisplayBarName() string {
	if u.BarName == nil || *u.BarName == "" {
		return "Your Bar"
	}
	return *u.BarName
}

// Location resolves the user's configured timezone, defaulting to UTC.
func (u User) Location() *time.Location {
	if u.Timezone == nil || *u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(*u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// StaffMember is a Square team member scoped to the owning user.
type StaffMember struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:staff_members_user_employee_key"`
	SquareEmployeeID string    `gorm:"column:square_employee_id;not null;uniqueIndex:staff_members_user_employee_key"`
	Name             string    `gorm:"column:name;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

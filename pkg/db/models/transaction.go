package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is one completed Square order. Date and Hour are in the owner's
// local time; TotalAmount is in cents.
type Transaction struct {
	ID                  uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:transactions_user_square_key"`
	SquareTransactionID string     `gorm:"column:square_transaction_id;not null;uniqueIndex:transactions_user_square_key"`
	Date                time.Time  `gorm:"column:date;type:date;not null"`
	Hour                int        `gorm:"column:hour;not null"`
	TotalAmount         int64      `gorm:"column:total_amount;not null"`
	ItemCount           int        `gorm:"column:item_count;not null"`
	StaffID             *uuid.UUID `gorm:"column:staff_id;type:uuid"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

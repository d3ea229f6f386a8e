package models

import (
	"github.com/google/uuid"
)

// TransactionItem is a line item. (TransactionID, ItemName) is the upsert key, so
// same-named lines on one order collapse into the last one written.
type TransactionItem struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:transaction_items_txn_name_key"`
	ItemName      string    `gorm:"column:item_name;not null;uniqueIndex:transaction_items_txn_name_key"`
	Category      string    `gorm:"column:category;not null"`
	Quantity      int       `gorm:"column:quantity;not null"`
	GrossAmount   int64     `gorm:"column:gross_amount;not null"`
}

package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/repo"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
)

// Store writes normalized Square data. Every write is an upsert on the
// natural key so replaying a window changes nothing.
type Store struct {
	repo.Base
}

func NewStore(db *gorm.DB) *Store {
	return &Store{Base: repo.NewBase(db)}
}

// UpsertStaff writes one staff row, overwriting the name on conflict.
func (s *Store) UpsertStaff(ctx context.Context, userID uuid.UUID, squareEmployeeID, name string) error {
	row := models.StaffMember{
		ID:               uuid.New(),
		UserID:           userID,
		SquareEmployeeID: squareEmployeeID,
		Name:             name,
	}
	return s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "square_employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&row).Error
}

// StaffIndex loads every staff member of userID keyed by Square employee id.
func (s *Store) StaffIndex(ctx context.Context, userID uuid.UUID) (StaffIndex, error) {
	var rows []models.StaffMember
	if err := s.DB(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	idx := make(StaffIndex, len(rows))
	for _, r := range rows {
		idx[r.SquareEmployeeID] = r.ID
	}
	return idx, nil
}

// UpsertTransaction writes txn and its items in one database transaction.
// Items are written one at a time, so two line items sharing a name leave
// only the last one stored.
func (s *Store) UpsertTransaction(ctx context.Context, txn models.Transaction, items []models.TransactionItem) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.Transaction(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		txn.ID = uuid.New()
		txn.CreatedAt = now
		txn.UpdatedAt = now
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "square_transaction_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"date", "hour", "total_amount", "item_count", "staff_id", "updated_at",
			}),
		}).Create(&txn).Error
		if err != nil {
			return err
		}

		// on conflict the generated id was discarded; read back the stored one
		var stored models.Transaction
		if err := tx.Select("id").
			Where("user_id = ? AND square_transaction_id = ?", txn.UserID, txn.SquareTransactionID).
			First(&stored).Error; err != nil {
			return err
		}
		id = stored.ID

		for _, item := range items {
			item.ID = uuid.New()
			item.TransactionID = id
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "transaction_id"}, {Name: "item_name"}},
				DoUpdates: clause.AssignmentColumns([]string{"category", "quantity", "gross_amount"}),
			}).Create(&item).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

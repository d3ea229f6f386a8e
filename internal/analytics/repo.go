package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/repo"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

// itemChunk keeps IN lists well under driver parameter limits.
const itemChunk = 500

// Repository reads the rows the rollups are built from. Every query is scoped
// to one user.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Transactions returns the user's transactions dated inside w, oldest first.
func (r *Repository) Transactions(ctx context.Context, userID uuid.UUID, w Window) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.DB(ctx).
		Where("user_id = ? AND date >= ? AND date < ?", userID, dateParam(w.Start), dateParam(w.End)).
		Order("date ASC, hour ASC, created_at ASC, square_transaction_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transactions")
	}
	return rows, nil
}

// Items loads the line items of the given transactions.
func (r *Repository) Items(ctx context.Context, txnIDs []uuid.UUID) ([]models.TransactionItem, error) {
	var out []models.TransactionItem
	for start := 0; start < len(txnIDs); start += itemChunk {
		end := min(start+itemChunk, len(txnIDs))
		var rows []models.TransactionItem
		err := r.DB(ctx).
			Where("transaction_id IN ?", txnIDs[start:end]).
			Order("item_name ASC").
			Find(&rows).Error
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction items")
		}
		out = append(out, rows...)
	}
	return out, nil
}

// Totals sums revenue and counts transactions inside w.
func (r *Repository) Totals(ctx context.Context, userID uuid.UUID, w Window) (Totals, error) {
	var row struct {
		Revenue int64
		Count   int64
	}
	err := r.DB(ctx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(total_amount), 0) AS revenue, COUNT(*) AS count").
		Where("user_id = ? AND date >= ? AND date < ?", userID, dateParam(w.Start), dateParam(w.End)).
		Scan(&row).Error
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "sum transactions")
	}
	return Totals{Revenue: row.Revenue, Count: row.Count}, nil
}

// StaffNames maps the user's staff ids to display names.
func (r *Repository) StaffNames(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error) {
	var rows []models.StaffMember
	if err := r.DB(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load staff")
	}
	out := make(map[uuid.UUID]string, len(rows))
	for _, s := range rows {
		out[s.ID] = s.Name
	}
	return out, nil
}

// RecentReports returns the user's latest reports, newest first.
func (r *Repository) RecentReports(ctx context.Context, userID uuid.UUID, limit int) ([]models.WeeklyReport, error) {
	var rows []models.WeeklyReport
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("generated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load recent reports")
	}
	return rows, nil
}

// dateParam compares cleanly against a Postgres DATE and SQLite's stored text.
func dateParam(t time.Time) string {
	return t.Format(time.DateOnly)
}

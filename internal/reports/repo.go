package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/repo"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

const userWeekConstraint = "weekly_reports_user_week_key"

// Repository persists weekly reports. Rows are never updated.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create inserts a report. A second report for the same user and week is a
// Conflict.
func (r *Repository) Create(ctx context.Context, report *models.WeeklyReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(report).Error; err != nil {
		if db.IsUniqueViolation(err, userWeekConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "report already exists for this week")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save weekly report")
	}
	return nil
}

// Exists reports whether the user already has a report for the week starting
// weekStart.
func (r *Repository) Exists(ctx context.Context, userID uuid.UUID, weekStart time.Time) (bool, error) {
	var n int64
	err := r.DB(ctx).Model(&models.WeeklyReport{}).
		Where("user_id = ? AND week_start >= ? AND week_start < ?", userID,
			weekStart.Format(time.DateOnly), weekStart.AddDate(0, 0, 1).Format(time.DateOnly)).
		Count(&n).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "check existing report")
	}
	return n > 0, nil
}

// ListByUser returns the user's reports, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WeeklyReport, error) {
	var rows []models.WeeklyReport
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("generated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list weekly reports")
	}
	return rows, nil
}

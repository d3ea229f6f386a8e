package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/repo"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/security"
)

// Repository persists Square connections. Tokens are sealed on write and
// opened on read, so callers only ever see plaintext.
type Repository struct {
	repo.Base
	box *security.Box
}

// NewRepository binds the repo to db; a nil box stores tokens unsealed.
func NewRepository(db *gorm.DB, box *security.Box) *Repository {
	return &Repository{Base: repo.NewBase(db), box: box}
}

// FindByUserID returns the user's connection, or nil when there is none.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.SquareConnection, error) {
	var conn models.SquareConnection
	err := r.DB(ctx).Where("user_id = ?", userID).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.open(&conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// List returns every connection, oldest first. A row whose tokens cannot be
// opened comes back with empty tokens so it fails on its own instead of
// hiding every other account.
func (r *Repository) List(ctx context.Context) ([]models.SquareConnection, error) {
	var rows []models.SquareConnection
	if err := r.DB(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		if err := r.open(&rows[i]); err != nil {
			rows[i].AccessToken = ""
			rows[i].RefreshToken = ""
		}
	}
	return rows, nil
}

// UpsertWithTx inserts or replaces the user's connection keyed by user_id.
func (r *Repository) UpsertWithTx(tx *gorm.DB, conn *models.SquareConnection) error {
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	sealed := *conn
	if err := r.seal(&sealed); err != nil {
		return err
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "merchant_id", "location_id", "expires_at", "updated_at",
		}),
	}).Create(&sealed).Error
	return err
}

// UpdateTokens stores a refreshed token pair.
func (r *Repository) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error {
	access, err := r.box.Seal(accessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := r.box.Seal(refreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	return r.DB(ctx).
		Model(&models.SquareConnection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"access_token":  access,
			"refresh_token": refresh,
			"expires_at":    expiresAt.UTC(),
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *Repository) DeleteByUserIDWithTx(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Where("user_id = ?", userID).Delete(&models.SquareConnection{}).Error
}

func (r *Repository) seal(conn *models.SquareConnection) error {
	var err error
	if conn.AccessToken, err = r.box.Seal(conn.AccessToken); err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	if conn.RefreshToken, err = r.box.Seal(conn.RefreshToken); err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	return nil
}

func (r *Repository) open(conn *models.SquareConnection) error {
	var err error
	if conn.AccessToken, err = r.box.Open(conn.AccessToken); err != nil {
		return fmt.Errorf("open access token for user %s: %w", conn.UserID, err)
	}
	if conn.RefreshToken, err = r.box.Open(conn.RefreshToken); err != nil {
		return fmt.Errorf("open refresh token for user %s: %w", conn.UserID, err)
	}
	return nil
}

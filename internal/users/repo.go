package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/repo"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/enums"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

// Repository exposes user persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a user, assigning an ID when missing.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Plan == "" {
		user.Plan = enums.PlanNone
	}
	return r.DB(ctx).Create(user).Error
}

// FindByID loads a user; a missing row maps to NOT_FOUND.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// ListReportable returns users whose subscription entitles them to the
// weekly report.
func (r *Repository) ListReportable(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := r.DB(ctx).
		Where("subscription_status IN ?", []enums.SubscriptionStatus{
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusTrialing,
		}).
		Where("plan <> ?", enums.PlanNone).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// SetSquareConnectedWithTx flips the connected flag inside the connect or
// disconnect transaction.
func (r *Repository) SetSquareConnectedWithTx(tx *gorm.DB, id uuid.UUID, connected bool) error {
	res := tx.
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("square_connected", connected)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

// FindByIDs loads users keyed by id. Unknown ids are absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.User
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}

// ProfileUpdate carries the owner-editable profile fields. A nil field is left
// untouched; an empty string clears it.
type ProfileUpdate struct {
	BarName  *string
	Location *string
	Timezone *string
}

func (u ProfileUpdate) columns() (map[string]any, error) {
	cols := map[string]any{}
	if u.BarName != nil {
		cols["bar_name"] = nullableText(*u.BarName)
	}
	if u.Location != nil {
		cols["location"] = nullableText(*u.Location)
	}
	if u.Timezone != nil {
		tz := strings.TrimSpace(*u.Timezone)
		if tz != "" {
			if strings.EqualFold(tz, "local") {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "timezone must be an IANA name")
			}
			if _, err := time.LoadLocation(tz); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "timezone must be an IANA name").
					WithDetails(map[string]any{"timezone": tz})
			}
		}
		cols["timezone"] = nullableText(tz)
	}
	return cols, nil
}

func nullableText(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// UpdateProfile applies upd to the user and returns the stored row.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*models.User, error) {
	cols, err := upd.columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return r.FindByID(ctx, id)
	}
	cols["updated_at"] = time.Now().UTC()

	res := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return r.FindByID(ctx, id)
}

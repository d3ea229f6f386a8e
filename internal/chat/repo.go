package chat

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/repo"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(msg).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save chat message")
	}
	return nil
}

// Latest returns the user's most recent messages in chronological order.
func (r *Repository) Latest(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load chat messages")
	}
	slices.Reverse(rows)
	return rows, nil
}

func (r *Repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if err := r.DB(ctx).Where("user_id = ?", userID).Delete(&models.ChatMessage{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clear chat messages")
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/enums"
)

type ChatMessage struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index:chat_messages_user_created_idx" json:"-"`
	Role      enums.ChatRole `gorm:"column:role;type:text;not null" json:"role"`
	Content   string         `gorm:"column:content;not null" json:"content"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index:chat_messages_user_created_idx" json:"created_at"`
}

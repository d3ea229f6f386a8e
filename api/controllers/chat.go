package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/api/responses"
	"github.com/tavernbuddy/tavernbuddy-backend/api/validators"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

type ChatService interface {
	Ask(ctx context.Context, userID uuid.UUID, message string) (string, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.ChatMessage, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
	// accepted from older clients; conversations are per user
	SessionID string `json:"sessionId,omitempty"`
}

func ChatAsk(svc ChatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req chatRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		answer, err := svc.Ask(r.Context(), userID, req.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"answer": answer})
	}
}

func ChatHistory(svc ChatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msgs, err := svc.History(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if msgs == nil {
			msgs = []models.ChatMessage{}
		}
		responses.WriteSuccess(w, map[string]any{"messages": msgs})
	}
}

func ChatClear(svc ChatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}

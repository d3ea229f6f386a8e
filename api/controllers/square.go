package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/api/responses"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/tokens"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

// SquareConnector is the OAuth surface of tokens.Connector.
type SquareConnector interface {
	AuthorizeURL(userID uuid.UUID) (string, error)
	HandleCallback(ctx context.Context, p tokens.CallbackParams) string
	Disconnect(ctx context.Context, userID uuid.UUID) error
}

// SquareConnect returns the Square consent URL for the signed-in user.
func SquareConnect(svc SquareConnector, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		url, err := svc.AuthorizeURL(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"url": url})
	}
}

// SquareCallback is Square's redirect target. It always redirects the browser
// back to onboarding with the outcome in the query string.
func SquareCallback(svc SquareConnector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		target := svc.HandleCallback(r.Context(), tokens.CallbackParams{
			Code:  q.Get("code"),
			State: q.Get("state"),
			Error: q.Get("error"),
		})
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func SquareDisconnect(svc SquareConnector, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Disconnect(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}

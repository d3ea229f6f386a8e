package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/api/responses"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/analytics"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

// UserFinder loads the signed-in user's profile.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type DashboardSource interface {
	Dashboard(ctx context.Context, userID uuid.UUID, now time.Time) (analytics.Metrics, error)
}

// DashboardMetrics returns the trailing week for the user's own timezone.
func DashboardMetrics(users UserFinder, svc DashboardSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := users.FindByID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m, err := svc.Dashboard(r.Context(), userID, time.Now().In(user.Location()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, m)
	}
}

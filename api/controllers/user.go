package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/api/responses"
	"github.com/tavernbuddy/tavernbuddy-backend/api/validators"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/users"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/enums"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

// ProfileStore reads and edits the signed-in user's profile.
type ProfileStore interface {
	UserFinder
	UpdateProfile(ctx context.Context, id uuid.UUID, upd users.ProfileUpdate) (*models.User, error)
}

type profileResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	Email              string                    `json:"email"`
	BarName            *string                   `json:"bar_name"`
	Location           *string                   `json:"location"`
	Timezone           *string                   `json:"timezone"`
	Plan               enums.Plan                `json:"plan"`
	SubscriptionStatus *enums.SubscriptionStatus `json:"subscription_status"`
	SquareConnected    bool                      `json:"square_connected"`
	OnboardingComplete bool                      `json:"onboarding_complete"`
}

func profileFromUser(u *models.User) profileResponse {
	return profileResponse{
		ID:                 u.ID,
		Email:              u.Email,
		BarName:            u.BarName,
		Location:           u.BarLocation,
		Timezone:           u.Timezone,
		Plan:               u.Plan,
		SubscriptionStatus: u.SubscriptionStatus,
		SquareConnected:    u.SquareConnected,
		OnboardingComplete: u.OnboardingComplete,
	}
}

// Absent fields are left alone; the repository checks timezone names.
type profilePatchRequest struct {
	BarName  *string `json:"bar_name,omitempty" validate:"omitempty,max=120,excludesall=<>"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=120,excludesall=<>"`
	Timezone *string `json:"timezone,omitempty" validate:"omitempty,max=64"`
}

func UserProfile(store ProfileStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := store.FindByID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profileFromUser(user))
	}
}

func UserUpdateProfile(store ProfileStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req profilePatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := store.UpdateProfile(r.Context(), userID, users.ProfileUpdate{
			BarName:  req.BarName,
			Location: req.Location,
			Timezone: req.Timezone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logg.Info(logg.WithUserID(r.Context(), userID.String()), "profile updated")
		responses.WriteSuccess(w, profileFromUser(user))
	}
}

package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/api/responses"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

type ReportService interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.WeeklyReport, error)
	GenerateForUser(ctx context.Context, user models.User) (*models.WeeklyReport, error)
}

// ReportsList returns the user's saved weekly reports, newest first.
func ReportsList(svc ReportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []models.WeeklyReport{}
		}
		responses.WriteSuccess(w, map[string]any{"reports": list})
	}
}

// ReportsGenerate builds and emails last week's report now. A saved report
// whose email failed answers 502 with the report id in the error details.
func ReportsGenerate(users UserFinder, svc ReportService, logg *logger.Logger) http.HandlerFunc {
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
		report, err := svc.GenerateForUser(r.Context(), *user)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, report)
	}
}

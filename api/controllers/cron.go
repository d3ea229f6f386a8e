package controllers

import (
	"context"
	"net/http"

	"github.com/tavernbuddy/tavernbuddy-backend/api/responses"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/cron"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

// CronRunner runs one named job under its lock.
type CronRunner interface {
	RunJob(ctx context.Context, name string) (cron.Outcome, error)
}

// CronTrigger runs job and replies with the bare {succeeded, failed, total}
// object. Per-account failures still answer 200; a trigger that lost the lock
// answers with zero counts.
func CronTrigger(runner CronRunner, job string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := runner.RunJob(r.Context(), job)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, outcome.Result)
	}
}

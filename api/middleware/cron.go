package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/tavernbuddy/tavernbuddy-backend/api/responses"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

// CronSecret admits requests whose bearer token equals the shared cron
// secret. An empty secret rejects everything.
func CronSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(bearerToken(r))
			if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/tavernbuddy/tavernbuddy-backend/api/responses"
	pkgAuth "github.com/tavernbuddy/tavernbuddy-backend/pkg/auth"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

// Auth validates a bearer session token and seeds the request context with
// the user id.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

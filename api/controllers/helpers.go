package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/api/middleware"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

func requireUserID(r *http.Request) (uuid.UUID, error) {
	id := middleware.UserIDFromContext(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

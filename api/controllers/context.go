package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/arjunmehta/cartly-backend/api/middleware"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
)

// callerID extracts the authenticated user's ID seeded by the auth middleware.
func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return id, nil
}

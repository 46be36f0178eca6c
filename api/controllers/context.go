package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/chemtrack/labstock-backend/api/middleware"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
)

// actorFromRequest extracts the authenticated actor seeded by the auth
// middleware.
func actorFromRequest(r *http.Request) (uuid.UUID, enums.ActorRole, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}
	return userID, role, nil
}

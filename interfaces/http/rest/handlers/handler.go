// Package handlers implements the REST endpoints.
package handlers

import (
	"net/http"

	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/auth"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// tenantFrom returns the agency resolved by the auth middleware.
func tenantFrom(r *http.Request) (services.Tenant, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return services.Tenant{}, apperrors.NewUnauthorizedError("unauthorized")
	}
	return services.Tenant{AgencyID: user.AgencyID, Plan: entities.Plan(user.Plan)}, nil
}

func invalidBody(err error) error {
	return apperrors.NewValidationError("invalid request body").WithCause(err)
}

func writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

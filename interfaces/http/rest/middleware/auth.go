package middleware

import (
	"context"
	"net/http"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/auth"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// Authenticator resolves a bearer token to the caller's agency.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entities.Agency, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved agency in the request context.
func Authenticate(agencies Authenticator, errs *apperrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			agency, err := agencies.Authenticate(r.Context(), token)
			if err != nil {
				errs.Handle(w, r, err)
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID:   agency.UserID,
				AgencyID: agency.ID,
				Plan:     string(agency.Plan),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

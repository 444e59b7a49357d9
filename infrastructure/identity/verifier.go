// Package identity resolves Supabase access tokens to user ids.
package identity

import (
	"context"
	"fmt"

	"github.com/supabase-community/gotrue-go"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/pkg/auth"
)

// Verifier checks tokens locally when the project JWT secret is known and
// asks Supabase Auth otherwise.
type Verifier struct {
	jwt    *auth.JWTValidator
	auth   gotrue.Client
	logger *zap.Logger
}

// NewVerifier creates a verifier. Either jwt or authClient must be set.
func NewVerifier(jwt *auth.JWTValidator, authClient gotrue.Client, logger *zap.Logger) *Verifier {
	return &Verifier{jwt: jwt, auth: authClient, logger: logger.Named("identity")}
}

// VerifyToken returns the user id the token was issued to.
func (v *Verifier) VerifyToken(ctx context.Context, token string) (string, error) {
	token = auth.BearerToken(token)
	if token == "" {
		return "", auth.ErrMissingToken
	}

	if v.jwt != nil {
		claims, err := v.jwt.ValidateToken(token)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}

	if v.auth == nil {
		return "", fmt.Errorf("%w: no verifier configured", auth.ErrInvalidToken)
	}
	user, err := v.auth.WithToken(token).GetUser()
	if err != nil {
		v.logger.Debug("Supabase rejected token", zap.Error(err))
		return "", fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	return user.ID.String(), nil
}

// Package identity verifies end-user access tokens against the Supabase
// identity provider.
package identity

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cwmia/gateway/internal/errors"
	"github.com/cwmia/gateway/internal/logging"
	"github.com/cwmia/gateway/internal/supabase"
)

// Identity is the minimal record of a verified end user. Ephemeral: it is
// never persisted by the gateway.
type Identity struct {
	ID    string
	Email string
}

// Verifier resolves bearer tokens to identities.
type Verifier struct {
	sb        *supabase.Client
	jwtSecret string
	logger    *logging.Logger
}

// NewVerifier creates a verifier. jwtSecret is optional; when set, tokens
// are verified locally and the auth REST API is only a fallback.
func NewVerifier(sb *supabase.Client, jwtSecret string, logger *logging.Logger) *Verifier {
	return &Verifier{sb: sb, jwtSecret: jwtSecret, logger: logger}
}

// Verify confirms the access token and returns the caller's identity.
// Absent, malformed, or expired tokens fail with Unauthorized.
func (v *Verifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.Unauthorized("missing bearer token")
	}

	if v.jwtSecret != "" {
		if id, err := v.verifyLocal(accessToken); err == nil {
			return id, nil
		}
	}

	user, err := v.sb.Auth().GetUser(ctx, accessToken)
	if err != nil {
		v.logger.WithContext(ctx).WithError(err).Warn("access token rejected")
		return nil, errors.Unauthorized("invalid or expired token")
	}
	if user.ID == "" {
		return nil, errors.Unauthorized("invalid or expired token")
	}
	return &Identity{ID: user.ID, Email: user.Email}, nil
}

// verifyLocal checks the JWT signature with the Supabase JWT secret,
// avoiding a network round trip per request.
func (v *Verifier) verifyLocal(accessToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("unexpected signing method")
		}
		return []byte(v.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.Unauthorized("invalid token")
	}

	id := &Identity{
		ID:    stringClaim(claims, "sub"),
		Email: stringClaim(claims, "email"),
	}
	if id.ID == "" {
		return nil, errors.Unauthorized("token has no subject")
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

// ParseBearer extracts the token from an Authorization header value.
// Returns "" when the header is absent or not a bearer scheme.
func ParseBearer(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

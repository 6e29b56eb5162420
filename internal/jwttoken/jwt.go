// Package jwttoken validates the bearer tokens issued by the identity
// provider. Tokens are verified locally against the shared signing key; the
// provider itself is an external collaborator.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sdep-gateway/internal/platform/middleware"
	dErrors "sdep-gateway/pkg/domainerrors"
)

// Roles the identity provider assigns to gateway callers.
const (
	RoleCompetentAuthority = "sdep_ca"
	RolePlatform           = "sdep_str"
	RoleRead               = "sdep_read"
	RoleWrite              = "sdep_write"
)

// Claims represents the token claims the gateway relies on. ClientID carries
// the caller's functional id (authority id or platform id), ClientName its
// display name; roles live in the provider's realm_access structure.
type Claims struct {
	ClientID    string      `json:"client_id"`
	ClientName  string      `json:"client_name"`
	RealmAccess RealmAccess `json:"realm_access"`
	jwt.RegisteredClaims
}

// RealmAccess mirrors the identity provider's role container.
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// JWTService handles token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateToken signs a token for the given caller. Used by tests and local
// development; production tokens come from the identity provider.
func (s *JWTService) GenerateToken(clientID, clientName string, roles []string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ClientID:    clientID,
		ClientName:  clientName,
		RealmAccess: RealmAccess{Roles: roles},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken verifies the signature and registered claims and returns the
// caller identity in the middleware's claim shape. Tokens without a
// client_id or client_name claim are rejected.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.ClientID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid token: missing 'client_id' claim")
	}
	if claims.ClientName == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid token: missing 'client_name' claim")
	}

	return &middleware.JWTClaims{
		ClientID:   claims.ClientID,
		ClientName: claims.ClientName,
		Roles:      claims.RealmAccess.Roles,
	}, nil
}

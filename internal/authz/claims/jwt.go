package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tenantguard/internal/authz/models"
	"tenantguard/pkg/domain"
	"tenantguard/pkg/platform/sentinel"
	"tenantguard/pkg/requestcontext"
)

// TokenClaims is the JWT claim layout this module consumes. The subject
// carries the actor ID; tenant and role ride in private claims.
type TokenClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTSource derives a claim set from the bearer token placed in the request
// context by the auth middleware. The token's signature proves the claims
// are tamper-evident; staleness relative to the system of record is handled
// by the resolver, not here.
type JWTSource struct {
	signingKey []byte
	issuer     string
}

func NewJWTSource(signingKey string, issuer string) *JWTSource {
	return &JWTSource{signingKey: []byte(signingKey), issuer: issuer}
}

// Claims parses and verifies the bearer token from context. A missing
// token is the "no claims" condition; an invalid or expired token is an
// error in its own right.
func (s *JWTSource) Claims(ctx context.Context) (models.ClaimSet, error) {
	tokenString := requestcontext.BearerToken(ctx)
	if tokenString == "" {
		return models.ClaimSet{}, sentinel.ErrNoClaims
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.ClaimSet{}, fmt.Errorf("bearer token: %w", sentinel.ErrExpired)
		}
		return models.ClaimSet{}, fmt.Errorf("parse bearer token: %w", err)
	}
	if !parsed.Valid {
		return models.ClaimSet{}, fmt.Errorf("bearer token: %w", sentinel.ErrNoClaims)
	}

	tc, ok := parsed.Claims.(*TokenClaims)
	if !ok {
		return models.ClaimSet{}, fmt.Errorf("bearer token claims: %w", sentinel.ErrNoClaims)
	}

	set := models.ClaimSet{
		TenantID: domain.TenantID(tc.TenantID),
		ActorID:  domain.ActorID(tc.Subject),
		Role:     domain.Role(tc.Role),
	}
	if tc.IssuedAt != nil {
		set.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		set.ExpiresAt = tc.ExpiresAt.Time
	}
	return set, nil
}

// IssueToken signs a claim set into a bearer token. Used by tests and by
// operators minting service credentials; the production issuer is the
// upstream identity system.
func (s *JWTSource) IssueToken(set models.ClaimSet, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		TenantID: set.TenantID.String(),
		Role:     string(set.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   set.ActorID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Package auth verifies the bearer tokens that carry an already-authenticated
// actor. Tokens are issued by the identity provider; this service only reads them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

// ErrInvalidToken is returned for any token that does not yield a usable actor.
var ErrInvalidToken = errors.New("invalid token")

// JWTManager validates HS256 access tokens and maps their claims to an actor.
type JWTManager struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTManager creates a new JWT manager.
// secret must be at least 32 characters for HS256 security.
func NewJWTManager(secret string, issuer string) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		leeway: 30 * time.Second,
	}
}

// actorClaims extends standard JWT claims with the actor's role and tenant.
type actorClaims struct {
	jwt.RegisteredClaims
	Role   string `json:"role"`
	Tenant string `json:"tenant"`
}

// GenerateAccessToken signs a token for actor valid for ttl.
// Used by tests and local tooling; production tokens come from the identity provider.
func (m *JWTManager) GenerateAccessToken(actor domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := actorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role:   string(actor.Role),
		Tenant: actor.TenantID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and validates a JWT access token and returns the
// actor it carries. Expiry is mandatory. Every failure wraps ErrInvalidToken.
func (m *JWTManager) ValidateAccessToken(tokenString string) (domain.Actor, error) {
	if tokenString == "" {
		return domain.Actor{}, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &actorClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: parse token: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*actorClaims)
	if !ok || !token.Valid {
		return domain.Actor{}, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	actorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: invalid subject: %w", ErrInvalidToken, err)
	}
	tenantID, err := uuid.Parse(claims.Tenant)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: invalid tenant: %w", ErrInvalidToken, err)
	}

	actor := domain.Actor{ID: actorID, Role: domain.Role(claims.Role), TenantID: tenantID}
	if err := actor.Validate(); err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return actor, nil
}

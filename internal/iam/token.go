package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medrex/clinic-scheduling/pkg/config"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// DefaultTokenTTL is the validity of an issued credential
const DefaultTokenTTL = 7 * 24 * time.Hour

var errInvalidCredential = types.NewUnauthorizedError(types.ErrCodeUnauthorized, "invalid or expired credential")

// TokenAuthority issues and validates role-bound HS256 credentials
type TokenAuthority struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	resolver *IdentityResolver
	logger   *logger.Logger
	now      func() time.Time
}

// NewTokenAuthority creates a token authority. The signing key is copied out
// of cfg once and never changes afterwards.
func NewTokenAuthority(cfg config.JWTConfig, resolver *IdentityResolver, log *logger.Logger) *TokenAuthority {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	secret := make([]byte, len(cfg.SecretKey))
	copy(secret, cfg.SecretKey)

	return &TokenAuthority{
		secret:   secret,
		ttl:      ttl,
		issuer:   cfg.Issuer,
		resolver: resolver,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for issuing and expiry checks
func (ta *TokenAuthority) WithClock(now func() time.Time) *TokenAuthority {
	ta.now = now
	return ta
}

// jwtClaims represents the signed credential payload
type jwtClaims struct {
	Role types.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a credential for subject under role
func (ta *TokenAuthority) Issue(subject string, role types.Role) (*types.AuthToken, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	now := ta.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ta.ttl)

	claims := &jwtClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    ta.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ta.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &types.AuthToken{
		Token:     tokenString,
		TokenType: "Bearer",
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// parse verifies signature, algorithm, issuer and expiry
func (ta *TokenAuthority) parse(credential string) (*jwtClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ta.now),
		jwt.WithExpirationRequired(),
	}
	if ta.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ta.issuer))
	}

	token, err := jwt.ParseWithClaims(credential, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ta.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// ExtractSubject returns the subject of a verified, unexpired credential
func (ta *TokenAuthority) ExtractSubject(credential string) (string, error) {
	claims, err := ta.parse(credential)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Resolve checks credential against the claimed role and returns the caller.
// Every credential problem yields the same unauthorized error. A store
// failure during the subject lookup is returned as internal.
func (ta *TokenAuthority) Resolve(ctx context.Context, credential string, claimed types.Role) (*types.Principal, error) {
	claims, err := ta.parse(credential)
	if err != nil {
		ta.reject(ctx, claimed, err)
		return nil, errInvalidCredential
	}

	if claims.Role != claimed {
		ta.reject(ctx, claimed, fmt.Errorf("credential issued for role %q", claims.Role))
		return nil, errInvalidCredential
	}

	id, err := ta.resolver.lookup(ctx, claimed, claims.Subject)
	if err != nil {
		if types.IsKind(err, types.ErrorKindNotFound) {
			ta.reject(ctx, claimed, errors.New("subject no longer exists"))
			return nil, errInvalidCredential
		}
		return nil, types.AsInternal(err, types.ErrCodeInternalError, "failed to resolve credential")
	}

	return id.principal(), nil
}

// Validate reports whether credential is valid for the claimed role
func (ta *TokenAuthority) Validate(ctx context.Context, credential string, claimed types.Role) bool {
	_, err := ta.Resolve(ctx, credential, claimed)
	return err == nil
}

func (ta *TokenAuthority) reject(ctx context.Context, claimed types.Role, reason error) {
	ta.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"claimed_role": string(claimed),
		"reason":       reason.Error(),
	}).Debug("Credential rejected")
}

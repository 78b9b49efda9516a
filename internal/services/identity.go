package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

// IdentityService resolves bearer tokens issued by the auth provider to user ids
type IdentityService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewIdentityService creates a new identity service. An empty issuer accepts any issuer.
func NewIdentityService(jwtSecret, issuer string) *IdentityService {
	return &IdentityService{
		secret: []byte(jwtSecret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Resolve validates an HS256 token and returns its subject
func (s *IdentityService) Resolve(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("%w: token required", ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: subject not found in token", ErrUnauthenticated)
	}

	return claims.Subject, nil
}

// IssueToken signs a token for userID. Used by the CLI for local development.
func (s *IdentityService) IssueToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id required", ErrValidation)
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aungkyaw/grn-automation/internal/server/middleware"
)

// Claims are the JWT claims carried by an access token. Subject is the
// stable user identifier; Staff widens visibility to every user's runs.
type Claims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 access tokens.
type JWTService struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTService creates a token service with the given signing secret
// and token lifetime.
func NewJWTService(secret string, expiration time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), expiration: expiration}
}

// GenerateToken issues a signed token for the given subject.
func (s *JWTService) GenerateToken(subject string, staff bool) (string, error) {
	now := time.Now()
	claims := Claims{
		Staff: staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// tokenValidatorAdapter bridges JWTService to the middleware interface.
type tokenValidatorAdapter struct {
	service *JWTService
}

func (a *tokenValidatorAdapter) ValidateToken(tokenString string) (middleware.Identity, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return middleware.Identity{}, err
	}
	return middleware.Identity{Subject: claims.Subject, Staff: claims.Staff}, nil
}

// AsTokenValidator adapts the service for the auth middleware.
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return &tokenValidatorAdapter{service: s}
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const issuer = "farm2home"

// SessionClaims identify a shopping session. They carry no identity and
// grant nothing beyond selecting which cart and orders a request sees.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenService(secretKey string, ttl time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Issue starts a new session and returns its id and signed token
func (s *TokenService) Issue() (sessionID, token string, expiresAt time.Time, err error) {
	sessionID = uuid.New().String()
	token, expiresAt, err = s.Sign(sessionID)
	return sessionID, token, expiresAt, err
}

// Sign creates a token for an existing session id
func (s *TokenService) Sign(sessionID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Parse validates tokenString and returns the session id
func (s *TokenService) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

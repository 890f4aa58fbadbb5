// Package token issues and redeems the signed, purpose-scoped strings
// used for email confirmation links.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const purposeEmailConfirm = "email-confirm"

// Validity is the window during which a confirmation token can be redeemed.
const Validity = time.Hour

var (
	// ErrExpired is returned when a token is past its validity window.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned when a token fails signature, subject or
	// purpose checks.
	ErrInvalid = errors.New("token invalid")
)

type confirmClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Service signs and verifies confirmation tokens with an HMAC secret.
type Service struct {
	secret []byte
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// Issue produces a signed token binding the username to the
// email-confirmation purpose for the validity window.
func (s *Service) Issue(username string) (string, error) {
	now := time.Now()
	claims := confirmClaims{
		Purpose: purposeEmailConfirm,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Validity)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Redeem verifies a token and returns the username it was issued for.
func (s *Service) Redeem(tokenString string) (string, error) {
	claims := confirmClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}
	if !token.Valid {
		return "", ErrInvalid
	}
	if claims.Purpose != purposeEmailConfirm {
		return "", ErrInvalid
	}
	username := strings.TrimSpace(claims.Subject)
	if username == "" {
		return "", ErrInvalid
	}
	return username, nil
}

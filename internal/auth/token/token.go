// Package token issues and verifies HS256 access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"vehicle_inspection_backend/platform/httpkit"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenType = "access"

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Issuer signs and verifies access tokens with a shared secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue signs an access token for userID that expires after ttl.
func (i *Issuer) Issue(userID uuid.UUID, role string, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"type": accessTokenType,
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken implements httpkit.TokenVerifier.
func (i *Issuer) VerifyToken(raw string) (httpkit.Principal, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return httpkit.Principal{}, ErrTokenExpired
		}
		return httpkit.Principal{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return httpkit.Principal{}, ErrTokenInvalid
	}
	if typ, _ := claims["type"].(string); typ != accessTokenType {
		return httpkit.Principal{}, ErrTokenInvalid
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return httpkit.Principal{}, ErrTokenInvalid
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return httpkit.Principal{}, ErrTokenInvalid
	}

	return httpkit.Principal{UserID: userID, Role: role}, nil
}

var _ httpkit.TokenVerifier = (*Issuer)(nil)

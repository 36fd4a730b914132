package jwtutil

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"medportal/pkg/xerrors"
)

type Claims struct {
	UserID    string            `json:"uid"`
	Device    string            `json:"device,omitempty"`
	IsTemp    bool              `json:"temp,omitempty"`
	Purpose   string            `json:"purpose,omitempty"`
	ExtraData map[string]string `json:"extra,omitempty"`
	jwt.RegisteredClaims
}

type Generator struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewGenerator(secret, issuer string, ttl time.Duration) *Generator {
	return &Generator{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate signs a session token. Temporary tokens (purpose-scoped,
// e.g. a pending password reset) expire after 30 minutes regardless
// of the configured TTL.
func (g *Generator) Generate(userID, device, purpose string, isTemp bool, extra map[string]string) (string, error) {
	now := time.Now()
	ttl := g.ttl
	if isTemp {
		ttl = 30 * time.Minute
	}

	jti := ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()

	claims := Claims{
		UserID:    userID,
		Device:    device,
		IsTemp:    isTemp,
		Purpose:   purpose,
		ExtraData: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    g.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (g *Generator) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, xerrors.ErrExpiredToken
		}
		return nil, xerrors.ErrInvalidToken
	}
	if !token.Valid {
		return nil, xerrors.ErrInvalidToken
	}
	return claims, nil
}

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer signs and verifies room access secrets. A secret is a short
// HS256 token bound to one room id; the matchmaker hands it to exactly
// the matched players.
type Issuer struct {
	key []byte
	ttl time.Duration
}

func NewIssuer(key string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(key), ttl: ttl}
}

type roomClaims struct {
	RoomID string `json:"room"`
	jwt.RegisteredClaims
}

// Issue creates an access secret for the given room.
func (i *Issuer) Issue(roomID string) (string, error) {
	now := time.Now()
	claims := roomClaims{
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign room secret: %w", err)
	}
	return signed, nil
}

// Verify checks that secret is valid and bound to roomID.
func (i *Issuer) Verify(secret, roomID string) error {
	var claims roomClaims
	_, err := jwt.ParseWithClaims(secret, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.key, nil
	})
	if err != nil {
		return fmt.Errorf("parse room secret: %w", err)
	}
	if claims.RoomID != roomID {
		return fmt.Errorf("secret is for another room")
	}
	return nil
}

package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadToken = errors.New("invalid token")

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// MakeToken issues a short-lived HS256 session token for the account.
func MakeToken(id Identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken validates the token and returns the identity it carries.
func ParseToken(raw, secret string) (Identity, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, ErrBadToken
	}

	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return Identity{}, ErrBadToken
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, ErrBadToken
	}

	role := Role(c.Role)
	if !role.Valid() {
		return Identity{}, ErrBadToken
	}

	return Identity{ID: id, Role: role}, nil
}

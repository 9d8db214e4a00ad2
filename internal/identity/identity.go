package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Profile is what the rest of the server knows about a connected user.
// It is resolved once per request/connection, before any command is accepted.
type Profile struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

var ErrInvalidToken = errors.New("invalid session token")

// Verifier resolves a session token to a user profile.
type Verifier interface {
	Verify(token string) (Profile, error)
}

// JWTVerifier validates HS256 session tokens minted by the campus account
// service. Claims: sub (user id), name, handle.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(tokenStr string) (Profile, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Profile{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Profile{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Profile{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	handle, _ := claims["handle"].(string)
	return Profile{UserID: sub, Name: name, Handle: handle}, nil
}

// StaticVerifier maps tokens straight to profiles. Test helper.
type StaticVerifier map[string]Profile

func (s StaticVerifier) Verify(token string) (Profile, error) {
	p, ok := s[token]
	if !ok {
		return Profile{}, ErrInvalidToken
	}
	return p, nil
}

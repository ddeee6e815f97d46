package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// DefaultTokenDuration is intentionally long: a join token is the client's
// only way back into a room, so it outlives any realistic reconnect window.
const DefaultTokenDuration = 5 * 365 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// RoomClaims binds a username to a room for the lifetime of the token.
type RoomClaims struct {
	Username string `json:"username"`
	RoomId   string `json:"room_id"`
	jwt.StandardClaims
}

// TokenService signs and verifies room session tokens. It is constructed
// once at startup and passed into the components that need it.
type TokenService struct {
	signingKey []byte
	duration   time.Duration
}

func NewTokenService(signingKey []byte, duration time.Duration) *TokenService {
	if duration == 0 {
		duration = DefaultTokenDuration
	}
	return &TokenService{
		signingKey: signingKey,
		duration:   duration,
	}
}

func (ts *TokenService) Sign(username, roomId string) (string, error) {
	now := time.Now()
	claims := RoomClaims{
		Username: username,
		RoomId:   roomId,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ts.duration).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.signingKey)
}

func (ts *TokenService) Verify(tokenString string) (*RoomClaims, error) {
	var claims RoomClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid || claims.Username == "" || claims.RoomId == "" {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}

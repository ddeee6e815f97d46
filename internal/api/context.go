package api

import (
	"context"

	"github.com/ssoriano/roomchat/internal/auth"
)

type contextKey string

const roomClaimsKey contextKey = "room-claims"

func WithRoomClaims(ctx context.Context, claims *auth.RoomClaims) context.Context {
	return context.WithValue(ctx, roomClaimsKey, claims)
}

func RoomClaims(ctx context.Context) (*auth.RoomClaims, bool) {
	claims, ok := ctx.Value(roomClaimsKey).(*auth.RoomClaims)
	return claims, ok
}

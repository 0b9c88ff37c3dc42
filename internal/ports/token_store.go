package ports

import "context"

// TokenStore is durable client storage for credential strings. It must
// survive process restarts and is cleared on logout.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

package ports

import (
	"context"
	"time"

	"github.com/weedrice/whiteboard-cli/internal/domain"
)

// SessionSnapshot is the persisted, non-secret part of a session: the
// cached user profile and bookkeeping. Tokens live in the TokenStore.
type SessionSnapshot struct {
	User         *domain.User
	LastSyncedAt time.Time
}

type SessionRepository interface {
	Load(ctx context.Context) (SessionSnapshot, error)
	Save(ctx context.Context, snapshot SessionSnapshot) error
	Clear(ctx context.Context) error
}

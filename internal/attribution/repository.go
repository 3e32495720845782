package attribution

import (
	"context"

	"github.com/contwre/leadflow/internal/domain"
)

// Repository defines the session-scoped storage contract for attribution
// data. Entries expire with the visitor session; nothing here is durable.
type Repository interface {
	// Get returns the stored snapshot for a session, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*domain.AttributionSnapshot, error)

	// Put stores (or overwrites) the snapshot for a session.
	Put(ctx context.Context, sessionID string, snap *domain.AttributionSnapshot) error

	// Visited reports whether the session has loaded the site before.
	Visited(ctx context.Context, sessionID string) (bool, error)

	// MarkVisited sets the session's visited flag.
	MarkVisited(ctx context.Context, sessionID string) error
}

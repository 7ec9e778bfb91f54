package override

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence interface for override tokens.
//
// ConsumeByToken and ForceExpire are conditional updates: the store flips
// used=false to true in a single atomic statement, so concurrent callers
// racing on the same token see exactly one matched=true result. A plain
// read-then-write implementation is not acceptable.
type Repository interface {
	Create(ctx context.Context, o *Override) error
	GetByID(ctx context.Context, id uuid.UUID) (*Override, error)
	GetByToken(ctx context.Context, token string) (*Override, error)
	ConsumeByToken(ctx context.Context, token string, now time.Time) (*Override, bool, error)
	ForceExpire(ctx context.Context, id uuid.UUID, now time.Time) (*Override, bool, error)
	List(ctx context.Context, onlyActive bool, now time.Time) ([]*Override, error)
}

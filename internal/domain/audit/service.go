package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carewell/hms/internal/platform/metrics"
)

// Service writes and reads the append-only audit ledger.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends an entry to the ledger. ActorID may be nil for
// system-initiated actions. Before/After/Meta pass through unvalidated.
func (s *Service) Record(ctx context.Context, entry *Entry) error {
	if entry.Action == "" {
		return fmt.Errorf("audit entry action is required")
	}
	if entry.Resource == "" {
		return fmt.Errorf("audit entry resource is required")
	}
	return s.repo.Create(ctx, entry)
}

// TryRecord appends an entry best-effort. A write failure never reaches the
// business caller: it is logged and counted so operators can detect ledger
// gaps, and the triggering operation proceeds regardless.
func (s *Service) TryRecord(ctx context.Context, entry *Entry) {
	if err := s.Record(ctx, entry); err != nil {
		metrics.AuditWriteFailed()
		s.logger.Error().
			Err(err).
			Str("action", entry.Action).
			Str("resource", entry.Resource).
			Msg("audit write dropped")
	}
}

// List returns ledger entries for operator review, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Entry, int, error) {
	return s.repo.List(ctx, filter)
}

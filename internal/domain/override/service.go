package override

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewell/hms/internal/platform/metrics"
)

// Service issues, validates, and single-use-consumes emergency override
// tokens. Consumption is terminal: once used or past expiry a token can
// never grant again.
type Service struct {
	repo       Repository
	logger     zerolog.Logger
	limiter    *issueRateLimit
	defaultTTL time.Duration
	maxPerHour int
	now        func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger, defaultTTL time.Duration, maxPerHour int) *Service {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Service{
		repo:       repo,
		logger:     logger,
		limiter:    newIssueRateLimit(),
		defaultTTL: defaultTTL,
		maxPerHour: maxPerHour,
		now:        time.Now,
	}
}

// Issue creates a new single-use override token. The raw token string in the
// returned Grant is shown exactly once; only its holder can present it again.
func (s *Service) Issue(ctx context.Context, issuedBy, reason string, targetUserID *string, ttl time.Duration) (*Grant, error) {
	if issuedBy == "" {
		return nil, fmt.Errorf("issuing actor id is required")
	}
	if len(strings.TrimSpace(reason)) < MinReasonLength {
		return nil, ErrReasonTooShort
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.now()
	if s.maxPerHour > 0 && !s.limiter.allow(issuedBy, now, s.maxPerHour) {
		return nil, ErrRateLimited
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate override token: %w", err)
	}

	o := &Override{
		Token:        token,
		IssuedBy:     issuedBy,
		Reason:       reason,
		TargetUserID: targetUserID,
		IssuedAt:     now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("persist override: %w", err)
	}

	metrics.OverrideIssued()
	s.logger.Warn().
		Str("type", "emergency_override").
		Str("override_id", o.ID.String()).
		Str("issued_by", issuedBy).
		Str("reason", reason).
		Time("expires_at", o.ExpiresAt).
		Msg("override_issued")

	return &Grant{ID: o.ID, Token: token, ExpiresAt: o.ExpiresAt}, nil
}

// Consume atomically marks the token used and returns its record. Concurrent
// calls on the same token produce exactly one success; the losers see
// ErrAlreadyUsed. An expired-but-unused token fails with ErrExpired, which is
// a different fact for the audit trail than ErrAlreadyUsed.
func (s *Service) Consume(ctx context.Context, token string) (*Override, error) {
	now := s.now()

	o, matched, err := s.repo.ConsumeByToken(ctx, token, now)
	if err != nil {
		return nil, fmt.Errorf("consume override: %w", err)
	}
	if matched {
		metrics.OverrideConsumed("granted")
		return o, nil
	}

	// The conditional update missed: classify why for logging and feedback.
	cur, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		metrics.OverrideConsumed("not_found")
		return nil, ErrNotFound
	}
	if cur.Used {
		metrics.OverrideConsumed("already_used")
		return nil, ErrAlreadyUsed
	}
	metrics.OverrideConsumed("expired")
	return nil, ErrExpired
}

// List returns override records, optionally filtered to tokens that are
// still consumable. Raw token strings are never included.
func (s *Service) List(ctx context.Context, onlyActive bool) ([]*Override, error) {
	return s.repo.List(ctx, onlyActive, s.now())
}

// Expire force-revokes an unused token, making it immediately unconsumable.
// Revoking an already-terminal token is an idempotent no-op that returns the
// stored record unchanged.
func (s *Service) Expire(ctx context.Context, id uuid.UUID, requestedBy string) (*Override, error) {
	o, matched, err := s.repo.ForceExpire(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("expire override: %w", err)
	}
	if matched {
		s.logger.Warn().
			Str("type", "emergency_override").
			Str("override_id", id.String()).
			Str("requested_by", requestedBy).
			Msg("override_revoked")
		return o, nil
	}
	return s.repo.GetByID(ctx, id)
}

func newToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

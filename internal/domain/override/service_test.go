package override

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

// mockRepo mirrors the conditional-update contract of the real store: the
// used flag flips under a single lock, so racing consumers see one winner.
type mockRepo struct {
	mu      sync.Mutex
	byToken map[string]*Override
	byID    map[uuid.UUID]*Override
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byToken: make(map[string]*Override),
		byID:    make(map[uuid.UUID]*Override),
	}
}

func (m *mockRepo) Create(_ context.Context, o *Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.New()
	cp := *o
	m.byToken[o.Token] = &cp
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepo) GetByToken(_ context.Context, token string) (*Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepo) ConsumeByToken(_ context.Context, token string, now time.Time) (*Override, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byToken[token]
	if !ok || o.Used || !now.Before(o.ExpiresAt) {
		return nil, false, nil
	}
	o.Used = true
	consumedAt := now
	o.ConsumedAt = &consumedAt
	cp := *o
	return &cp, true, nil
}

func (m *mockRepo) ForceExpire(_ context.Context, id uuid.UUID, now time.Time) (*Override, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.Used {
		return nil, false, nil
	}
	o.Used = true
	o.ExpiresAt = now
	cp := *o
	return &cp, true, nil
}

func (m *mockRepo) List(_ context.Context, onlyActive bool, now time.Time) ([]*Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Override
	for _, o := range m.byID {
		if onlyActive && !o.Active(now) {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}
	return result, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, zerolog.Nop(), DefaultTTL, 10)
}

// -- Tests --

func TestIssueAndConsume(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	target := "patient-77"
	grant, err := svc.Issue(ctx, "dr-house", "cardiac arrest in ward 3", &target, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if grant.Token == "" {
		t.Fatal("expected a raw token in the grant")
	}
	if len(grant.Token) != TokenBytes*2 {
		t.Errorf("expected %d-char hex token, got %d", TokenBytes*2, len(grant.Token))
	}

	o, err := svc.Consume(ctx, grant.Token)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if o.ID != grant.ID {
		t.Errorf("consumed id = %s, want %s", o.ID, grant.ID)
	}
	if o.IssuedBy != "dr-house" {
		t.Errorf("issued_by = %q, want dr-house", o.IssuedBy)
	}
	if o.Reason != "cardiac arrest in ward 3" {
		t.Errorf("reason = %q", o.Reason)
	}
	if o.TargetUserID == nil || *o.TargetUserID != "patient-77" {
		t.Errorf("target_user_id = %v, want patient-77", o.TargetUserID)
	}
	if !o.Used || o.ConsumedAt == nil {
		t.Error("consumed override should be marked used with a timestamp")
	}
}

func TestIssueReasonTooShort(t *testing.T) {
	svc := newTestService(newMockRepo())

	if _, err := svc.Issue(context.Background(), "dr-house", "hi", nil, 0); err != ErrReasonTooShort {
		t.Fatalf("expected ErrReasonTooShort, got %v", err)
	}
	// Whitespace padding does not count toward the minimum.
	if _, err := svc.Issue(context.Background(), "dr-house", "  ab  ", nil, 0); err != ErrReasonTooShort {
		t.Fatalf("expected ErrReasonTooShort for padded reason, got %v", err)
	}
}

func TestIssueRequiresActor(t *testing.T) {
	svc := newTestService(newMockRepo())
	if _, err := svc.Issue(context.Background(), "", "a valid reason", nil, 0); err == nil {
		t.Fatal("expected error for missing issuer")
	}
}

func TestIssueRateLimited(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop(), DefaultTTL, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Issue(ctx, "dr-house", "repeated emergencies", nil, 0); err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
	}
	if _, err := svc.Issue(ctx, "dr-house", "one too many", nil, 0); err != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	// A different actor is unaffected.
	if _, err := svc.Issue(ctx, "dr-wilson", "separate budget", nil, 0); err != nil {
		t.Fatalf("unrelated actor was limited: %v", err)
	}
}

func TestConsumeNotFound(t *testing.T) {
	svc := newTestService(newMockRepo())
	if _, err := svc.Consume(context.Background(), "no-such-token"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConsumeTwice(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	grant, err := svc.Issue(ctx, "dr-house", "a valid reason", nil, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Consume(ctx, grant.Token); err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if _, err := svc.Consume(ctx, grant.Token); err != ErrAlreadyUsed {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
}

func TestConsumeExpired(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	grant, err := svc.Issue(ctx, "dr-house", "a valid reason", nil, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Advance the clock past expiry without touching the token.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, err := svc.Consume(ctx, grant.Token); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	grant, err := svc.Issue(ctx, "dr-house", "a valid reason", nil, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	const goroutines = 32
	var wg sync.WaitGroup
	results := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, grant.Token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if err != ErrAlreadyUsed {
			t.Errorf("loser got %v, want ErrAlreadyUsed", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly 1 successful consume, got %d", wins)
	}
}

func TestExpireIdempotent(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	grant, err := svc.Issue(ctx, "dr-house", "a valid reason", nil, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	o, err := svc.Expire(ctx, grant.ID, "admin-1")
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if !o.Used {
		t.Error("revoked override should be marked used")
	}

	// Second revoke is a no-op that still returns the record.
	o2, err := svc.Expire(ctx, grant.ID, "admin-1")
	if err != nil {
		t.Fatalf("second Expire failed: %v", err)
	}
	if o2.ID != grant.ID {
		t.Errorf("second Expire returned id %s, want %s", o2.ID, grant.ID)
	}

	// The token itself can no longer grant.
	if _, err := svc.Consume(ctx, grant.Token); err != ErrAlreadyUsed {
		t.Fatalf("expected ErrAlreadyUsed after revoke, got %v", err)
	}
}

func TestExpireUnknownID(t *testing.T) {
	svc := newTestService(newMockRepo())
	if _, err := svc.Expire(context.Background(), uuid.New(), "admin-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOnlyActive(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	g1, err := svc.Issue(ctx, "dr-house", "still valid here", nil, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	g2, err := svc.Issue(ctx, "dr-house", "about to be used", nil, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Consume(ctx, g2.Token); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	active, err := svc.List(ctx, true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != g1.ID {
		t.Fatalf("expected only the unconsumed override, got %d entries", len(active))
	}

	all, err := svc.List(ctx, false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(all))
	}
}

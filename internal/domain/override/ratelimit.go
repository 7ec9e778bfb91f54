package override

import (
	"sync"
	"time"
)

// issueRateLimit tracks per-actor issuance timestamps within a rolling
// one-hour window. Emergency issuance is rare by nature; a burst from one
// account is more likely a leaked credential than a mass-casualty event.
type issueRateLimit struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

func newIssueRateLimit() *issueRateLimit {
	return &issueRateLimit{entries: make(map[string][]time.Time)}
}

// allow reports whether the actor is under the issuance limit and, if so,
// records the current timestamp. The caller supplies the clock so tests can
// inject a deterministic one.
func (rl *issueRateLimit) allow(actorID string, now time.Time, maxPerHour int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-1 * time.Hour)

	existing := rl.entries[actorID]
	pruned := existing[:0]
	for _, ts := range existing {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= maxPerHour {
		rl.entries[actorID] = pruned
		return false
	}

	rl.entries[actorID] = append(pruned, now)
	return true
}

// cleanup drops actors whose entries have all aged out, bounding memory.
func (rl *issueRateLimit) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-1 * time.Hour)
	for actorID, timestamps := range rl.entries {
		pruned := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				pruned = append(pruned, ts)
			}
		}
		if len(pruned) == 0 {
			delete(rl.entries, actorID)
		} else {
			rl.entries[actorID] = pruned
		}
	}
}

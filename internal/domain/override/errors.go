package override

import (
	"errors"
	"time"
)

const (
	// MinReasonLength is the minimum length of an issuance reason.
	MinReasonLength = 5
	// DefaultTTL is the token lifetime when the caller does not override it.
	DefaultTTL = 15 * time.Minute
	// TokenBytes is the entropy of a generated token before hex encoding.
	TokenBytes = 24
)

// The three terminal consume failures are distinct facts for the audit trail
// and user feedback, even though each leaves the token permanently invalid.
// The authorization engine collapses all of them to a generic forbidden.
var (
	ErrNotFound       = errors.New("override token not found")
	ErrAlreadyUsed    = errors.New("override token already used")
	ErrExpired        = errors.New("override token expired")
	ErrReasonTooShort = errors.New("override reason must be at least 5 characters")
	ErrRateLimited    = errors.New("override issuance rate limit exceeded")
)

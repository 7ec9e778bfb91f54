package override

import (
	"time"

	"github.com/google/uuid"
)

// Override maps to the emergency_override table. The raw token string is
// returned exactly once at issuance and never serialized afterwards.
type Override struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Token        string     `db:"token" json:"-"`
	IssuedBy     string     `db:"issued_by" json:"issued_by"`
	Reason       string     `db:"reason" json:"reason"`
	TargetUserID *string    `db:"target_user_id" json:"target_user_id,omitempty"`
	Used         bool       `db:"used" json:"used"`
	IssuedAt     time.Time  `db:"issued_at" json:"issued_at"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt   *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// Active reports whether the token is still consumable at the given instant.
func (o *Override) Active(now time.Time) bool {
	return !o.Used && now.Before(o.ExpiresAt)
}

// Grant is the issuance response handed to the requesting caller. This is the
// only place the raw token ever appears.
type Grant struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

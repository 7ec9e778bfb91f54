package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only record in the audit ledger. Entries are never
// updated or deleted by this core. Before/After/Meta are opaque payloads:
// the ledger stores them verbatim and never inspects their shape.
type Entry struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	ActorID    *string                `db:"actor_id" json:"actor_id,omitempty"`
	Action     string                 `db:"action" json:"action"`
	Resource   string                 `db:"resource" json:"resource"`
	ResourceID *string                `db:"resource_id" json:"resource_id,omitempty"`
	Before     map[string]interface{} `db:"before" json:"before,omitempty"`
	After      map[string]interface{} `db:"after" json:"after,omitempty"`
	Meta       map[string]interface{} `db:"meta" json:"meta,omitempty"`
	IP         *string                `db:"ip" json:"ip,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}

// Filter narrows ledger listings for operator review.
type Filter struct {
	ActorID  string
	Action   string
	Resource string
	Limit    int
	Offset   int
}

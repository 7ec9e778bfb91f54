package audit

import "context"

// Repository is the persistence interface for the audit ledger. There is no
// update or delete: the ledger only grows.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]*Entry, int, error)
}

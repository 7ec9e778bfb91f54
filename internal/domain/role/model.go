package role

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Role maps to the role table plus its permission membership. Membership is
// a set: no duplicates, and updates replace the whole set rather than merge.
type Role struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Permission maps to the permission table. Permissions are immutable named
// capabilities: created administratively, never mutated.
type Permission struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Permission names are lowercase category.action pairs, e.g. billing.update.
var permissionNamePattern = regexp.MustCompile(`^[a-z0-9_]+\.[a-z0-9_]+$`)

// ValidPermissionName reports whether the name follows the category.action
// convention.
func ValidPermissionName(name string) bool {
	return permissionNamePattern.MatchString(name)
}

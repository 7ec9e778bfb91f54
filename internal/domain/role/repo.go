package role

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence interface for roles and permissions.
type Repository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	// ReplacePermissions makes the supplied set the role's entire membership:
	// stale links are removed, missing ones added, in one transaction.
	ReplacePermissions(ctx context.Context, id uuid.UUID, permissionNames []string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountAssignedUsers counts user accounts currently referencing the role.
	// The user table is owned by the business layer; this core only reads it
	// for the deletion guard.
	CountAssignedUsers(ctx context.Context, id uuid.UUID) (int, error)

	ListPermissions(ctx context.Context) ([]*Permission, error)
	CreatePermission(ctx context.Context, p *Permission) error
}

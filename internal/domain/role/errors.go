package role

import "errors"

var (
	ErrNotFound = errors.New("role not found")

	// Deletion guards. Unlike authorization failures these are administrative
	// errors and carry specific, actionable messages.
	ErrRootRoleProtected = errors.New("the system root role cannot be deleted")
	ErrRoleInUse         = errors.New("role has assigned users and cannot be deleted")

	ErrDuplicateName         = errors.New("role name already exists")
	ErrInvalidPermissionName = errors.New("permission name must be lowercase category.action")
)

package auth

import "sort"

// Actor is the resolved identity behind a request: an opaque user id, the
// role label, and the permission set computed when the session was issued.
// Permissions are carried with the session, not re-queried per check, so
// permission changes take effect on the next session issuance.
type Actor struct {
	ID          string
	Role        string
	Permissions PermissionSet
}

// PermissionSet is a closed set of permission names in category.action form.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given names, dropping duplicates.
func NewPermissionSet(names ...string) PermissionSet {
	s := make(PermissionSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether the named permission is in the set.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts a permission name into the set.
func (s PermissionSet) Add(name string) {
	s[name] = struct{}{}
}

// Slice returns the permission names in sorted order.
func (s PermissionSet) Slice() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

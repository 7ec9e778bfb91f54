package auth

import "errors"

var (
	// ErrUnauthorized means no actor could be resolved from the request at
	// all. Guards that need an identity before checking anything return it.
	ErrUnauthorized = errors.New("unauthorized: no resolvable actor")

	// ErrForbidden is the single outcome surfaced to callers when a
	// permission is absent and no valid override was presented. The
	// underlying cause (missing permission, unknown token, expired token,
	// already-used token) is deliberately not distinguishable here.
	ErrForbidden = errors.New("forbidden")

	// ErrProfileNotFound means the actor authenticated and carries the
	// required role, but the secondary role profile lookup found nothing.
	ErrProfileNotFound = errors.New("role profile not found")
)

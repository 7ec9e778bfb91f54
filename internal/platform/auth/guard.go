package auth

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
)

// Profile is the secondary role profile looked up by actor id for
// role-specific workflows (e.g. a clinician-only action needs the clinician
// record behind the user account).
type Profile struct {
	UserID      string
	Role        string
	DisplayName string
}

// ProfileStore is the external collaborator providing role profiles. The
// business layer owns the backing data; this core only consumes the lookup.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
}

// RequireRoleGuard checks that the request carries an authenticated actor
// with the required role label and that a role profile exists for it.
//
// The failure taxonomy is deliberate and callers branch on it:
// no actor at all → ErrUnauthorized; wrong role → ErrForbidden; actor fine
// but no profile record → ErrProfileNotFound.
func RequireRoleGuard(c echo.Context, requiredRole string, profiles ProfileStore) (*Actor, *Profile, error) {
	ctx := c.Request().Context()

	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, nil, ErrUnauthorized
	}
	if actor.Role != requiredRole {
		return nil, nil, ErrForbidden
	}

	profile, err := profiles.GetByUserID(ctx, actor.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProfileNotFound, err)
	}
	if profile == nil {
		return nil, nil, ErrProfileNotFound
	}

	return actor, profile, nil
}

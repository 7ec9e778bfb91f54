package role

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service implements role administration. The root role name is configured at
// startup and is protected from deletion so the deployment can never lock
// itself out of role management.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	rootRole string
}

func NewService(repo Repository, logger zerolog.Logger, rootRole string) *Service {
	return &Service{repo: repo, logger: logger, rootRole: rootRole}
}

// UpdateInput carries a partial role update. Nil fields are left untouched;
// a non-nil PermissionNames replaces the role's entire membership.
type UpdateInput struct {
	Name            *string
	PermissionNames *[]string
}

func (s *Service) List(ctx context.Context) ([]*Role, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, name string, permissionNames []string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}
	perms, err := normalizePermissionNames(permissionNames)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, ErrDuplicateName
	}

	role := &Role{Name: name, Permissions: perms}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.logger.Info().Str("role_id", role.ID.String()).Str("name", name).Msg("role created")
	return role, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Role, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("role name is required")
		}
		if name != existing.Name {
			if other, err := s.repo.GetByName(ctx, name); err == nil && other.ID != id {
				return nil, ErrDuplicateName
			}
			if err := s.repo.Rename(ctx, id, name); err != nil {
				return nil, fmt.Errorf("rename role: %w", err)
			}
		}
	}

	if in.PermissionNames != nil {
		perms, err := normalizePermissionNames(*in.PermissionNames)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ReplacePermissions(ctx, id, perms); err != nil {
			return nil, fmt.Errorf("replace role permissions: %w", err)
		}
	}

	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.Name == s.rootRole {
		return ErrRootRoleProtected
	}
	n, err := s.repo.CountAssignedUsers(ctx, id)
	if err != nil {
		return fmt.Errorf("count assigned users: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d assigned", ErrRoleInUse, n)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("role_id", id.String()).Str("name", role.Name).Msg("role deleted")
	return nil
}

// ResolvePermissions returns the permission names granted to the named role.
// An unknown role resolves to the empty set rather than an error so that a
// stale session claim denies instead of failing the request.
func (s *Service) ResolvePermissions(ctx context.Context, roleName string) ([]string, error) {
	role, err := s.repo.GetByName(ctx, roleName)
	if err == ErrNotFound {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return role.Permissions, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *Service) CreatePermission(ctx context.Context, name string) (*Permission, error) {
	name = strings.TrimSpace(name)
	if !ValidPermissionName(name) {
		return nil, ErrInvalidPermissionName
	}
	p := &Permission{Name: name}
	if err := s.repo.CreatePermission(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// normalizePermissionNames validates, dedupes, and sorts the input.
func normalizePermissionNames(names []string) ([]string, error) {
	seen := map[string]struct{}{}
	out := []string{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if !ValidPermissionName(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPermissionName, name)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

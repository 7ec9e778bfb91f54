package role

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockRepo struct {
	roles     map[uuid.UUID]*Role
	links     map[uuid.UUID][]string
	perms     map[string]*Permission
	userCount map[uuid.UUID]int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		roles:     make(map[uuid.UUID]*Role),
		links:     make(map[uuid.UUID][]string),
		perms:     make(map[string]*Permission),
		userCount: make(map[uuid.UUID]int),
	}
}

func (m *mockRepo) Create(_ context.Context, role *Role) error {
	role.ID = uuid.New()
	role.CreatedAt = time.Now()
	role.UpdatedAt = time.Now()
	m.roles[role.ID] = role
	m.links[role.ID] = append([]string{}, role.Permissions...)
	for _, name := range role.Permissions {
		if _, ok := m.perms[name]; !ok {
			m.perms[name] = &Permission{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
		}
	}
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.Permissions = append([]string{}, m.links[id]...)
	return &cp, nil
}

func (m *mockRepo) GetByName(_ context.Context, name string) (*Role, error) {
	for id, r := range m.roles {
		if r.Name == name {
			return m.GetByID(context.Background(), id)
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context) ([]*Role, error) {
	var result []*Role
	for id := range m.roles {
		r, _ := m.GetByID(context.Background(), id)
		result = append(result, r)
	}
	return result, nil
}

func (m *mockRepo) Rename(_ context.Context, id uuid.UUID, name string) error {
	r, ok := m.roles[id]
	if !ok {
		return ErrNotFound
	}
	r.Name = name
	return nil
}

func (m *mockRepo) ReplacePermissions(_ context.Context, id uuid.UUID, permissionNames []string) error {
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	for _, name := range permissionNames {
		if _, ok := m.perms[name]; !ok {
			m.perms[name] = &Permission{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
		}
	}
	m.links[id] = append([]string{}, permissionNames...)
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	delete(m.roles, id)
	delete(m.links, id)
	return nil
}

func (m *mockRepo) CountAssignedUsers(_ context.Context, id uuid.UUID) (int, error) {
	return m.userCount[id], nil
}

func (m *mockRepo) ListPermissions(_ context.Context) ([]*Permission, error) {
	var result []*Permission
	for _, p := range m.perms {
		result = append(result, p)
	}
	return result, nil
}

func (m *mockRepo) CreatePermission(_ context.Context, p *Permission) error {
	if _, ok := m.perms[p.Name]; ok {
		return ErrDuplicateName
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.perms[p.Name] = p
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, zerolog.Nop(), "ADMIN")
}

// -- Tests --

func TestCreateRole(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	r, err := svc.Create(ctx, "NURSE", []string{"audit.read", "roles.read", "audit.read"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// Membership is a set: duplicates collapse and order is stable.
	want := []string{"audit.read", "roles.read"}
	if !reflect.DeepEqual(r.Permissions, want) {
		t.Errorf("permissions = %v, want %v", r.Permissions, want)
	}

	if _, err := svc.Create(ctx, "NURSE", nil); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestCreateRoleInvalidPermission(t *testing.T) {
	svc := newTestService(newMockRepo())
	_, err := svc.Create(context.Background(), "NURSE", []string{"Bad Name"})
	if !errors.Is(err, ErrInvalidPermissionName) {
		t.Fatalf("expected ErrInvalidPermissionName, got %v", err)
	}
}

func TestUpdateRoleFullReplace(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	r, err := svc.Create(ctx, "NURSE", []string{"perm.a", "perm.c"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	newPerms := []string{"perm.a", "perm.b"}
	updated, err := svc.Update(ctx, r.ID, UpdateInput{PermissionNames: &newPerms})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// perm.c must be gone, perm.b present: replacement, not merge.
	if !reflect.DeepEqual(updated.Permissions, []string{"perm.a", "perm.b"}) {
		t.Errorf("permissions = %v, want [perm.a perm.b]", updated.Permissions)
	}
	if !reflect.DeepEqual(repo.links[r.ID], []string{"perm.a", "perm.b"}) {
		t.Errorf("stored links = %v, stale membership left behind", repo.links[r.ID])
	}
}

func TestUpdateRoleRename(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	r, err := svc.Create(ctx, "NURSE", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, "CLERK", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	name := "HEAD_NURSE"
	updated, err := svc.Update(ctx, r.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "HEAD_NURSE" {
		t.Errorf("name = %q", updated.Name)
	}

	// Renaming onto an existing role is a conflict.
	taken := "CLERK"
	if _, err := svc.Update(ctx, r.ID, UpdateInput{Name: &taken}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestDeleteRole(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	r, err := svc.Create(ctx, "TEMP", []string{"perm.a"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := svc.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted role still readable: %v", err)
	}
	if _, ok := repo.links[r.ID]; ok {
		t.Error("permission links survived role deletion")
	}
}

func TestDeleteRootRoleRefused(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	r, err := svc.Create(ctx, "ADMIN", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := svc.Delete(ctx, r.ID); !errors.Is(err, ErrRootRoleProtected) {
		t.Fatalf("expected ErrRootRoleProtected, got %v", err)
	}
}

func TestDeleteRoleInUse(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	r, err := svc.Create(ctx, "NURSE", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	repo.userCount[r.ID] = 4

	if err := svc.Delete(ctx, r.ID); !errors.Is(err, ErrRoleInUse) {
		t.Fatalf("expected ErrRoleInUse, got %v", err)
	}
	if _, err := svc.Get(ctx, r.ID); err != nil {
		t.Fatal("refused delete must leave the role intact")
	}
}

func TestResolvePermissions(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "NURSE", []string{"audit.read"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	perms, err := svc.ResolvePermissions(ctx, "NURSE")
	if err != nil {
		t.Fatalf("ResolvePermissions failed: %v", err)
	}
	if !reflect.DeepEqual(perms, []string{"audit.read"}) {
		t.Errorf("perms = %v", perms)
	}

	// Unknown role denies by resolving to the empty set.
	perms, err = svc.ResolvePermissions(ctx, "GHOST")
	if err != nil {
		t.Fatalf("ResolvePermissions failed: %v", err)
	}
	if len(perms) != 0 {
		t.Errorf("unknown role resolved to %v", perms)
	}
}

func TestCreatePermission(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	p, err := svc.CreatePermission(ctx, "billing.update")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	if p.Name != "billing.update" || p.ID == uuid.Nil {
		t.Errorf("permission = %+v", p)
	}

	for _, bad := range []string{"Billing.Update", "billing", "billing.up date", ""} {
		if _, err := svc.CreatePermission(ctx, bad); !errors.Is(err, ErrInvalidPermissionName) {
			t.Errorf("name %q: expected ErrInvalidPermissionName, got %v", bad, err)
		}
	}

	if _, err := svc.CreatePermission(ctx, "billing.update"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

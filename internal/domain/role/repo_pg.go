package role

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carewell/hms/internal/platform/db"
)

type pgRepo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

func (r *pgRepo) Create(ctx context.Context, role *Role) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context, q db.Queryable) error {
		err := q.QueryRow(ctx, `
			INSERT INTO role (name)
			VALUES ($1)
			RETURNING id, created_at, updated_at`,
			role.Name,
		).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert role: %w", err)
		}
		return linkPermissions(ctx, q, role.ID, role.Permissions)
	})
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	return r.get(ctx, `WHERE r.id = $1`, id)
}

func (r *pgRepo) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.get(ctx, `WHERE r.name = $1`, name)
}

func (r *pgRepo) get(ctx context.Context, where string, arg interface{}) (*Role, error) {
	role := &Role{}
	err := r.pool.QueryRow(ctx, `
		SELECT r.id, r.name, r.created_at, r.updated_at
		FROM role r `+where,
		arg,
	).Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select role: %w", err)
	}

	role.Permissions, err = r.permissionNames(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *pgRepo) permissionNames(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name
		FROM role_permission rp
		JOIN permission p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("select role permissions: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *pgRepo) List(ctx context.Context) ([]*Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.created_at, r.updated_at,
		       COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}')
		FROM role r
		LEFT JOIN role_permission rp ON rp.role_id = r.id
		LEFT JOIN permission p ON p.id = rp.permission_id
		GROUP BY r.id
		ORDER BY r.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("select roles: %w", err)
	}
	defer rows.Close()

	roles := []*Role{}
	for rows.Next() {
		role := &Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt, &role.Permissions); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *pgRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE role SET name = $2, updated_at = NOW() WHERE id = $1`,
		id, name,
	)
	if err != nil {
		return fmt.Errorf("rename role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) ReplacePermissions(ctx context.Context, id uuid.UUID, permissionNames []string) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context, q db.Queryable) error {
		tag, err := q.Exec(ctx, `
			UPDATE role SET updated_at = NOW() WHERE id = $1`,
			id,
		)
		if err != nil {
			return fmt.Errorf("touch role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		_, err = q.Exec(ctx, `
			DELETE FROM role_permission
			WHERE role_id = $1
			  AND permission_id NOT IN (SELECT id FROM permission WHERE name = ANY($2))`,
			id, permissionNames,
		)
		if err != nil {
			return fmt.Errorf("prune role permissions: %w", err)
		}
		return linkPermissions(ctx, q, id, permissionNames)
	})
}

// linkPermissions upserts the named permissions and attaches any not yet
// linked to the role.
func linkPermissions(ctx context.Context, q db.Queryable, roleID uuid.UUID, names []string) error {
	if len(names) == 0 {
		return nil
	}
	for _, name := range names {
		_, err := q.Exec(ctx, `
			INSERT INTO permission (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING`,
			name,
		)
		if err != nil {
			return fmt.Errorf("upsert permission %q: %w", name, err)
		}
	}
	_, err := q.Exec(ctx, `
		INSERT INTO role_permission (role_id, permission_id)
		SELECT $1, id FROM permission WHERE name = ANY($2)
		ON CONFLICT DO NOTHING`,
		roleID, names,
	)
	if err != nil {
		return fmt.Errorf("link role permissions: %w", err)
	}
	return nil
}

func (r *pgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context, q db.Queryable) error {
		if _, err := q.Exec(ctx, `DELETE FROM role_permission WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("delete role permissions: %w", err)
		}
		tag, err := q.Exec(ctx, `DELETE FROM role WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *pgRepo) CountAssignedUsers(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_account WHERE role_id = $1`,
		id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count assigned users: %w", err)
	}
	return n, nil
}

func (r *pgRepo) ListPermissions(ctx context.Context) ([]*Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, created_at FROM permission ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("select permissions: %w", err)
	}
	defer rows.Close()

	perms := []*Permission{}
	for rows.Next() {
		p := &Permission{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *pgRepo) CreatePermission(ctx context.Context, p *Permission) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permission (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, created_at`,
		p.Name,
	).Scan(&p.ID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("insert permission: %w", err)
	}
	return nil
}

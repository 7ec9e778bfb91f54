package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carewell/hms/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates a new Postgres-backed audit Repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryColumns = `id, actor_id, action, resource, resource_id, before, after, meta, ip, created_at`

func (r *repoPG) Create(ctx context.Context, entry *Entry) error {
	entry.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_log (id, actor_id, action, resource, resource_id, before, after, meta, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		entry.ID, entry.ActorID, entry.Action, entry.Resource, entry.ResourceID,
		entry.Before, entry.After, entry.Meta, entry.IP,
	).Scan(&entry.CreatedAt)
}

func (r *repoPG) List(ctx context.Context, filter Filter) ([]*Entry, int, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_log WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM audit_log WHERE 1=1`
	var args []interface{}
	idx := 1

	if filter.ActorID != "" {
		clause := fmt.Sprintf(` AND actor_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, filter.ActorID)
		idx++
	}
	if filter.Action != "" {
		clause := fmt.Sprintf(` AND action = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, filter.Action)
		idx++
	}
	if filter.Resource != "" {
		clause := fmt.Sprintf(` AND resource = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, filter.Resource)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func scanEntry(rows pgx.Rows) (*Entry, error) {
	var e Entry
	err := rows.Scan(
		&e.ID, &e.ActorID, &e.Action, &e.Resource, &e.ResourceID,
		&e.Before, &e.After, &e.Meta, &e.IP, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

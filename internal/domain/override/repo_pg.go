package override

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carewell/hms/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates a new Postgres-backed override Repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const overrideColumns = `id, token, issued_by, reason, target_user_id, used, issued_at, expires_at, consumed_at`

func (r *repoPG) Create(ctx context.Context, o *Override) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_override (id, token, issued_by, reason, target_user_id, used, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
		o.ID, o.Token, o.IssuedBy, o.Reason, o.TargetUserID, o.IssuedAt, o.ExpiresAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Override, error) {
	o, err := scanOverride(r.conn(ctx).QueryRow(ctx,
		`SELECT `+overrideColumns+` FROM emergency_override WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

func (r *repoPG) GetByToken(ctx context.Context, token string) (*Override, error) {
	o, err := scanOverride(r.conn(ctx).QueryRow(ctx,
		`SELECT `+overrideColumns+` FROM emergency_override WHERE token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

// ConsumeByToken flips used to true in a single conditional UPDATE so that
// exactly one of any number of concurrent callers matches. matched=false with
// a nil error means the token was absent, expired, or already used; the
// caller classifies by re-reading.
func (r *repoPG) ConsumeByToken(ctx context.Context, token string, now time.Time) (*Override, bool, error) {
	o, err := scanOverride(r.conn(ctx).QueryRow(ctx, `
		UPDATE emergency_override
		SET used = TRUE, consumed_at = $2
		WHERE token = $1 AND used = FALSE AND expires_at > $2
		RETURNING `+overrideColumns,
		token, now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// ForceExpire revokes an unused token. Already-terminal tokens do not match;
// the caller treats that as an idempotent no-op.
func (r *repoPG) ForceExpire(ctx context.Context, id uuid.UUID, now time.Time) (*Override, bool, error) {
	o, err := scanOverride(r.conn(ctx).QueryRow(ctx, `
		UPDATE emergency_override
		SET used = TRUE, expires_at = $2
		WHERE id = $1 AND used = FALSE
		RETURNING `+overrideColumns,
		id, now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

func (r *repoPG) List(ctx context.Context, onlyActive bool, now time.Time) ([]*Override, error) {
	query := `SELECT ` + overrideColumns + ` FROM emergency_override`
	var args []interface{}
	if onlyActive {
		query += ` WHERE used = FALSE AND expires_at > $1`
		args = append(args, now)
	}
	query += ` ORDER BY issued_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []*Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func scanOverride(row pgx.Row) (*Override, error) {
	var o Override
	err := row.Scan(
		&o.ID, &o.Token, &o.IssuedBy, &o.Reason, &o.TargetUserID,
		&o.Used, &o.IssuedAt, &o.ExpiresAt, &o.ConsumedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

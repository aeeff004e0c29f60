package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements the authority and content stores using PostgreSQL
type Repository struct {
	db DBTX
	// lockRows makes FindByID take a row lock; set inside transactions so
	// renames of the same authority are serialized across processes.
	lockRows bool
}

var (
	_ simpleauthority.AuthorityStore = (*Repository)(nil)
	_ simpleauthority.ContentStore   = (*Repository)(nil)
)

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "authority") {
				return fmt.Errorf("authority already exists: %w", err)
			}
			return fmt.Errorf("duplicate entry: %w", err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found: %w", err)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing: %w", pgErr.ColumnName, err)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("concurrent update in %s: %w", operation, err)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required: %w", err)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s): %w", operation, pgErr.Message, pgErr.Code, err)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Authority operations

func (r *Repository) FindByID(ctx context.Context, id string) (*simpleauthority.AuthorityRecord, error) {
	query := `
		SELECT id, kind, value, field, created_at, updated_at
		FROM authority WHERE id = $1`
	if r.lockRows {
		query += ` FOR UPDATE`
	}

	var record simpleauthority.AuthorityRecord
	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.Kind, &record.Value, &record.Field,
		&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleauthority.ErrAuthorityNotFound
		}
		return nil, r.handlePostgresError("find authority", err)
	}

	return &record, nil
}

func (r *Repository) Create(ctx context.Context, record *simpleauthority.AuthorityRecord) (string, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO authority (id, kind, value, field, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), COALESCE($6, NOW()))`

	_, err := r.db.Exec(ctx, query,
		id, string(record.Kind), record.Value, record.Field,
		nullTime(record.CreatedAt), nullTime(record.UpdatedAt))
	if err != nil {
		return "", r.handlePostgresError("create authority", err)
	}

	return id, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM authority WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete authority", err)
	}
	return nil
}

// Content operations

func (r *Repository) FindItemsReferencingAuthority(ctx context.Context, field, authorityID, afterID string, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT item_id FROM metadata_value
		WHERE field = $1 AND authority = $2 AND item_id > $3
		ORDER BY item_id
		LIMIT $4`

	rows, err := r.db.Query(ctx, query, field, authorityID, afterID, limit)
	if err != nil {
		return nil, r.handlePostgresError("find referencing items", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.handlePostgresError("scan referencing items", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("find referencing items", err)
	}

	return ids, nil
}

func (r *Repository) Reload(ctx context.Context, id string) (*simpleauthority.ContentItem, error) {
	var item simpleauthority.ContentItem
	err := r.db.QueryRow(ctx,
		`SELECT id, revision, updated_at FROM item WHERE id = $1`, id).Scan(
		&item.ID, &item.Revision, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleauthority.ErrItemNotFound
		}
		return nil, r.handlePostgresError("reload item", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT field, value, COALESCE(authority, '')
		FROM metadata_value WHERE item_id = $1
		ORDER BY place`, id)
	if err != nil {
		return nil, r.handlePostgresError("reload item metadata", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st simpleauthority.MetadataStatement
		if err := rows.Scan(&st.Field, &st.Value, &st.Authority); err != nil {
			return nil, r.handlePostgresError("scan item metadata", err)
		}
		item.Statements = append(item.Statements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("reload item metadata", err)
	}

	return &item, nil
}

// Update rewrites the item's statements in place, keyed by position. The
// item revision is left untouched.
func (r *Repository) Update(ctx context.Context, item *simpleauthority.ContentItem) error {
	tag, err := r.db.Exec(ctx, `UPDATE item SET updated_at = NOW() WHERE id = $1`, item.ID)
	if err != nil {
		return r.handlePostgresError("update item", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleauthority.ErrItemNotFound
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM metadata_value WHERE item_id = $1`, item.ID); err != nil {
		return r.handlePostgresError("clear item metadata", err)
	}
	for place, st := range item.Statements {
		_, err := r.db.Exec(ctx, `
			INSERT INTO metadata_value (item_id, place, field, value, authority)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''))`,
			item.ID, place, st.Field, st.Value, st.Authority)
		if err != nil {
			return r.handlePostgresError("insert item metadata", err)
		}
	}
	return nil
}

// Transactions

// Transactor opens pgx transactions over a pool
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor creates a Transactor backed by the pool
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Store returns an autocommit repository over the pool
func (t *Transactor) Store() *Repository {
	return New(t.pool)
}

// Begin starts a transaction. Authority lookups inside it lock the row.
func (t *Transactor) Begin(ctx context.Context) (simpleauthority.Tx, error) {
	pgTx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	repo := New(pgTx)
	repo.lockRows = true
	return &tx{tx: pgTx, repo: repo}, nil
}

type tx struct {
	tx   pgx.Tx
	repo *Repository
}

func (t *tx) Authorities() simpleauthority.AuthorityStore { return t.repo }

func (t *tx) Content() simpleauthority.ContentStore { return t.repo }

func (t *tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return simpleauthority.ErrTxDone
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return simpleauthority.ErrTxDone
		}
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

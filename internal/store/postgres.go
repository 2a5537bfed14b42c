package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresCollection stores records as JSONB documents keyed by
// (collection, id). Ids come from collection_sequences and are never reused.
type PostgresCollection[T any, P RecordPtr[T]] struct {
	db   *sql.DB
	name string
}

func NewPostgresCollection[T any, P RecordPtr[T]](db *sql.DB, name string) *PostgresCollection[T, P] {
	return &PostgresCollection[T, P]{db: db, name: name}
}

func (c *PostgresCollection[T, P]) decode(id int, body []byte, createdAt, updatedAt time.Time) (T, error) {
	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("%w: %s/%d: %v", ErrCorrupt, c.name, id, err)
	}
	P(&rec).SetID(id)
	P(&rec).SetCreatedAt(createdAt.UTC())
	P(&rec).SetUpdatedAt(updatedAt.UTC())
	return rec, nil
}

func (c *PostgresCollection[T, P]) List(ctx context.Context) ([]T, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, body, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY id
	`, c.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var (
			id        int
			body      []byte
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &body, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rec, err := c.decode(id, body, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (c *PostgresCollection[T, P]) Get(ctx context.Context, id int) (T, error) {
	return c.get(c.db.QueryRowContext(ctx, `
		SELECT body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, c.name, id), id)
}

func (c *PostgresCollection[T, P]) get(row *sql.Row, id int) (T, error) {
	var (
		body      []byte
		createdAt time.Time
		updatedAt time.Time
		zero      T
	)
	if err := row.Scan(&body, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return c.decode(id, body, createdAt, updatedAt)
}

func (c *PostgresCollection[T, P]) Create(ctx context.Context, rec T) (T, error) {
	var zero T

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO collection_sequences (collection, next_id)
		VALUES ($1, 2)
		ON CONFLICT (collection)
		DO UPDATE SET next_id = collection_sequences.next_id + 1
		RETURNING next_id - 1
	`, c.name).Scan(&id); err != nil {
		return zero, err
	}

	ts := clock()
	P(&rec).SetID(id)
	P(&rec).SetCreatedAt(ts)
	P(&rec).SetUpdatedAt(ts)

	body, err := json.Marshal(rec)
	if err != nil {
		return zero, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, c.name, id, body, ts); err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return rec, nil
}

func (c *PostgresCollection[T, P]) Update(ctx context.Context, id int, patch Patch) (T, error) {
	return c.mutate(ctx, id, func(current T) (T, error) {
		return applyPatch[T, P](current, patch, clock())
	})
}

func (c *PostgresCollection[T, P]) Replace(ctx context.Context, rec T) (T, error) {
	return c.mutate(ctx, P(&rec).GetID(), func(current T) (T, error) {
		P(&rec).SetCreatedAt(P(&current).GetCreatedAt())
		P(&rec).SetUpdatedAt(clock())
		return rec, nil
	})
}

// Modify holds the row lock for the duration of fn.
func (c *PostgresCollection[T, P]) Modify(ctx context.Context, id int, fn func(T) (T, error)) (T, error) {
	return c.mutate(ctx, id, func(current T) (T, error) {
		next, err := fn(current)
		if err != nil {
			return next, err
		}
		P(&next).SetCreatedAt(P(&current).GetCreatedAt())
		return next, nil
	})
}

func (c *PostgresCollection[T, P]) mutate(ctx context.Context, id int, fn func(T) (T, error)) (T, error) {
	var zero T

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := c.get(tx.QueryRowContext(ctx, `
		SELECT body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
		FOR UPDATE
	`, c.name, id), id)
	if err != nil {
		return zero, err
	}

	next, err := fn(current)
	if err != nil {
		return zero, err
	}
	ts := clock()
	P(&next).SetID(id)
	P(&next).SetUpdatedAt(ts)

	body, err := json.Marshal(next)
	if err != nil {
		return zero, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET body = $3, updated_at = $4
		WHERE collection = $1 AND id = $2
	`, c.name, id, body, ts); err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return next, nil
}

func (c *PostgresCollection[T, P]) Delete(ctx context.Context, id int) (bool, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`, c.name, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

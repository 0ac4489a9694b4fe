package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores the path tree in a single store_nodes table. One row per
// logical record, value held as jsonb so partial updates can merge
// server-side.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM store_nodes WHERE path = $1`, path).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return raw, nil
}

func (p *Postgres) Set(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", path, err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO store_nodes (path, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (path) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, path, string(data))
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields for %s: %w", path, err)
	}

	// jsonb || merges the partial object into the stored one.
	_, err = p.pool.Exec(ctx, `
		INSERT INTO store_nodes (path, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (path) DO UPDATE
		SET value = store_nodes.value || EXCLUDED.value, updated_at = now()
	`, path, string(data))
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	return nil
}

func (p *Postgres) Push(ctx context.Context, path string, value interface{}) (string, error) {
	id := uuid.NewString()
	if err := p.Set(ctx, Join(path, id), value); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Children(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT path, value FROM store_nodes
		WHERE path LIKE $1 || '/%' AND path NOT LIKE $1 || '/%/%'
	`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", path, err)
	}
	defer rows.Close()

	return collectChildren(rows, path)
}

func (p *Postgres) Query(ctx context.Context, path, field, equals string) (map[string]json.RawMessage, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT path, value FROM store_nodes
		WHERE path LIKE $1 || '/%' AND path NOT LIKE $1 || '/%/%'
		  AND value->>$2 = $3
	`, path, field, equals)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", path, field, err)
	}
	defer rows.Close()

	return collectChildren(rows, path)
}

func collectChildren(rows pgx.Rows, parent string) (map[string]json.RawMessage, error) {
	children := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			path string
			raw  []byte
		)
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan child row: %w", err)
		}
		id := childID(parent, path)
		if id == "" {
			continue
		}
		children[id] = json.RawMessage(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return children, nil
}

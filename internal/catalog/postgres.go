package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/postgres"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         BIGINT PRIMARY KEY,
	name       TEXT NOT NULL,
	indexed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres is a Catalog backed by the documents table.
type Postgres struct {
	client *postgres.Client
}

// NewPostgres creates the documents table if needed.
func NewPostgres(ctx context.Context, client *postgres.Client) (*Postgres, error) {
	if _, err := client.DB.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return &Postgres{client: client}, nil
}

func (p *Postgres) Put(ctx context.Context, id uint64, name string) error {
	_, err := p.client.DB.ExecContext(ctx,
		`INSERT INTO documents (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, indexed_at = NOW()`,
		int64(id), name,
	)
	if err != nil {
		return fmt.Errorf("storing document %d: %w", id, err)
	}
	return nil
}

func (p *Postgres) Name(ctx context.Context, id uint64) (string, error) {
	var name string
	err := p.client.DB.QueryRowContext(ctx,
		`SELECT name FROM documents WHERE id = $1`, int64(id),
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("loading document %d: %w", id, err)
	}
	return name, nil
}

func (p *Postgres) Names(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}
	rows, err := p.client.DB.QueryContext(ctx,
		`SELECT id, name FROM documents WHERE id = ANY($1)`, pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("loading document names: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64]string, len(ids))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning document name: %w", err)
		}
		out[uint64(id)] = name
	}
	return out, rows.Err()
}

// Package db implements the hierarchy store contracts on Postgres via pgx.
// The Queries type follows the New/WithTx surface so handlers can run a set
// of operations inside one transaction.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

var _ hierarchy.Store = (*Queries)(nil)

// encodeMetadata renders the open key-value bag as jsonb; nil becomes the
// empty object so the column stays non-null.
func encodeMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return json.Marshal(metadata)
}

func decodeMetadata(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, err
	}
	if len(metadata) == 0 {
		return nil, nil
	}
	return metadata, nil
}

func notFoundIfNoRows(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		args = append(args, hierarchy.ErrNotFound)
		return fmt.Errorf(format+": %w", args...)
	}
	return err
}

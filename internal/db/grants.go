package db

import (
	"context"
	"fmt"

	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"
)

const createGrantSQL = `
INSERT INTO permission_grants (user_id, structure_id, metadata)
VALUES ($1, $2, $3)
RETURNING id, user_id, structure_id, metadata;
`

func (q *Queries) CreateGrant(ctx context.Context, userID, structureID int64, metadata map[string]string) (hierarchy.Grant, error) {
	encoded, err := encodeMetadata(metadata)
	if err != nil {
		return hierarchy.Grant{}, err
	}
	return scanGrant(q.db.QueryRow(ctx, createGrantSQL, userID, structureID, encoded))
}

const getGrantSQL = `
SELECT id, user_id, structure_id, metadata
FROM permission_grants
WHERE id = $1;
`

func (q *Queries) GetGrant(ctx context.Context, id int64) (hierarchy.Grant, error) {
	grant, err := scanGrant(q.db.QueryRow(ctx, getGrantSQL, id))
	if err != nil {
		return hierarchy.Grant{}, notFoundIfNoRows(err, "grant %d", id)
	}
	return grant, nil
}

const listGrantsForUserSQL = `
SELECT id, user_id, structure_id, metadata
FROM permission_grants
WHERE user_id = $1
ORDER BY id;
`

func (q *Queries) ListGrantsForUser(ctx context.Context, userID int64) ([]hierarchy.Grant, error) {
	rows, err := q.db.Query(ctx, listGrantsForUserSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []hierarchy.Grant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

const deleteGrantSQL = `
DELETE FROM permission_grants
WHERE id = $1;
`

func (q *Queries) DeleteGrant(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, deleteGrantSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("grant %d: %w", id, hierarchy.ErrNotFound)
	}
	return nil
}

func scanGrant(row rowScanner) (hierarchy.Grant, error) {
	var (
		grant hierarchy.Grant
		raw   []byte
	)
	if err := row.Scan(&grant.ID, &grant.UserID, &grant.StructureID, &raw); err != nil {
		return hierarchy.Grant{}, err
	}
	metadata, err := decodeMetadata(raw)
	if err != nil {
		return hierarchy.Grant{}, err
	}
	grant.Metadata = metadata
	return grant, nil
}

package db

import (
	"context"
	"fmt"

	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"
)

const createStructureSQL = `
INSERT INTO structures (name, parent_id, metadata)
VALUES ($1, $2, $3)
RETURNING id, name, parent_id, metadata;
`

func (q *Queries) CreateStructure(ctx context.Context, name string, parentID *int64, metadata map[string]string) (hierarchy.Structure, error) {
	encoded, err := encodeMetadata(metadata)
	if err != nil {
		return hierarchy.Structure{}, err
	}
	row := q.db.QueryRow(ctx, createStructureSQL, name, parentID, encoded)
	return scanStructure(row)
}

const getStructureSQL = `
SELECT id, name, parent_id, metadata
FROM structures
WHERE id = $1;
`

func (q *Queries) GetStructure(ctx context.Context, id int64) (hierarchy.Structure, error) {
	node, err := scanStructure(q.db.QueryRow(ctx, getStructureSQL, id))
	if err != nil {
		return hierarchy.Structure{}, notFoundIfNoRows(err, "structure %d", id)
	}
	return node, nil
}

const listStructuresSQL = `
SELECT id, name, parent_id, metadata
FROM structures
ORDER BY id;
`

func (q *Queries) ListStructures(ctx context.Context) ([]hierarchy.Structure, error) {
	rows, err := q.db.Query(ctx, listStructuresSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []hierarchy.Structure
	for rows.Next() {
		node, err := scanStructure(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, node)
	}
	return all, rows.Err()
}

const updateStructureSQL = `
UPDATE structures
SET name = $2, metadata = $3, updated_at = now()
WHERE id = $1
RETURNING id, name, parent_id, metadata;
`

func (q *Queries) UpdateStructure(ctx context.Context, id int64, name string, metadata map[string]string) (hierarchy.Structure, error) {
	encoded, err := encodeMetadata(metadata)
	if err != nil {
		return hierarchy.Structure{}, err
	}
	node, err := scanStructure(q.db.QueryRow(ctx, updateStructureSQL, id, name, encoded))
	if err != nil {
		return hierarchy.Structure{}, notFoundIfNoRows(err, "structure %d", id)
	}
	return node, nil
}

const setStructureParentSQL = `
UPDATE structures
SET parent_id = $2, updated_at = now()
WHERE id = $1;
`

func (q *Queries) SetStructureParent(ctx context.Context, id int64, parentID *int64) error {
	tag, err := q.db.Exec(ctx, setStructureParentSQL, id, parentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("structure %d: %w", id, hierarchy.ErrNotFound)
	}
	return nil
}

const deleteStructureSQL = `
DELETE FROM structures
WHERE id = $1;
`

func (q *Queries) DeleteStructure(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, deleteStructureSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("structure %d: %w", id, hierarchy.ErrNotFound)
	}
	return nil
}

const countChildrenSQL = `
SELECT count(*)
FROM structures
WHERE parent_id = $1;
`

func (q *Queries) CountChildren(ctx context.Context, id int64) (int64, error) {
	var count int64
	if err := q.db.QueryRow(ctx, countChildrenSQL, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStructure(row rowScanner) (hierarchy.Structure, error) {
	var (
		node hierarchy.Structure
		raw  []byte
	)
	if err := row.Scan(&node.ID, &node.Name, &node.ParentID, &raw); err != nil {
		return hierarchy.Structure{}, err
	}
	metadata, err := decodeMetadata(raw)
	if err != nil {
		return hierarchy.Structure{}, err
	}
	node.Metadata = metadata
	return node, nil
}

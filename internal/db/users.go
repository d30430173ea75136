package db

import (
	"context"
	"fmt"

	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"
)

const createUserSQL = `
INSERT INTO users (id, structure_id)
VALUES ($1, $2)
RETURNING id, structure_id;
`

func (q *Queries) CreateUser(ctx context.Context, id int64, structureID *int64) (hierarchy.User, error) {
	var user hierarchy.User
	if err := q.db.QueryRow(ctx, createUserSQL, id, structureID).Scan(&user.ID, &user.StructureID); err != nil {
		return hierarchy.User{}, err
	}
	return user, nil
}

const getUserSQL = `
SELECT id, structure_id
FROM users
WHERE id = $1;
`

func (q *Queries) GetUser(ctx context.Context, id int64) (hierarchy.User, error) {
	var user hierarchy.User
	if err := q.db.QueryRow(ctx, getUserSQL, id).Scan(&user.ID, &user.StructureID); err != nil {
		return hierarchy.User{}, notFoundIfNoRows(err, "user %d", id)
	}
	return user, nil
}

const listUsersSQL = `
SELECT id, structure_id
FROM users
ORDER BY id;
`

func (q *Queries) ListUsers(ctx context.Context) ([]hierarchy.User, error) {
	rows, err := q.db.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []hierarchy.User
	for rows.Next() {
		var user hierarchy.User
		if err := rows.Scan(&user.ID, &user.StructureID); err != nil {
			return nil, err
		}
		all = append(all, user)
	}
	return all, rows.Err()
}

const setUserStructureSQL = `
UPDATE users
SET structure_id = $2
WHERE id = $1;
`

func (q *Queries) SetUserStructure(ctx context.Context, id int64, structureID *int64) error {
	tag, err := q.db.Exec(ctx, setUserStructureSQL, id, structureID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, hierarchy.ErrNotFound)
	}
	return nil
}

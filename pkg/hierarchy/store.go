package hierarchy

import "context"

// StructureStore is plain durable CRUD on structure nodes. Referential checks
// that need a consistent view of the whole tree (cycle prevention, the
// has-children delete guard) live in the Coordinator, which runs them under
// the write lease; stores only have to report ErrNotFound for missing ids.
type StructureStore interface {
	CreateStructure(ctx context.Context, name string, parentID *int64, metadata map[string]string) (Structure, error)
	GetStructure(ctx context.Context, id int64) (Structure, error)
	// ListStructures returns every node ordered by id ascending, so callers
	// can rebuild the forest deterministically by linking parent ids.
	ListStructures(ctx context.Context) ([]Structure, error)
	UpdateStructure(ctx context.Context, id int64, name string, metadata map[string]string) (Structure, error)
	SetStructureParent(ctx context.Context, id int64, parentID *int64) error
	DeleteStructure(ctx context.Context, id int64) error
	CountChildren(ctx context.Context, id int64) (int64, error)
}

// GrantStore persists explicit cross-branch grants.
type GrantStore interface {
	CreateGrant(ctx context.Context, userID, structureID int64, metadata map[string]string) (Grant, error)
	GetGrant(ctx context.Context, id int64) (Grant, error)
	ListGrantsForUser(ctx context.Context, userID int64) ([]Grant, error)
	DeleteGrant(ctx context.Context, id int64) error
}

// UserDirectory is the user lookup the engine consumes. Users are provisioned
// by the identity layer; the engine only reads ids and home positions and
// re-homes users through the Coordinator.
type UserDirectory interface {
	CreateUser(ctx context.Context, id int64, structureID *int64) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserStructure(ctx context.Context, id int64, structureID *int64) error
}

// Store bundles the three persistence contracts a full deployment provides.
type Store interface {
	StructureStore
	GrantStore
	UserDirectory
}

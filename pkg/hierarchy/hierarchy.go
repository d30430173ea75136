// Package hierarchy implements the organizational structure tree and the
// access-resolution engine on top of it: pure ancestor/descendant traversal,
// the cached access decision service, and the mutation coordinator that keeps
// cached decisions consistent with structure and permission writes.
package hierarchy

// Structure is a node in the organizational forest. A nil ParentID marks a
// root. The parent relation must stay acyclic; the MutationCoordinator
// enforces that on every write.
type Structure struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	ParentID *int64            `json:"parent_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Grant is an explicit cross-branch permission: it adds StructureID to
// UserID's accessible set independently of where the user sits in the tree.
type Grant struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	StructureID int64             `json:"structure_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// User carries the only user fields the engine needs. A nil StructureID means
// the user has no home position and therefore no derived access.
type User struct {
	ID          int64  `json:"id"`
	StructureID *int64 `json:"structure_id"`
}

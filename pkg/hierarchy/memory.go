package hierarchy

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is an in-memory Store for unit tests and single-process
// development. It mirrors the Postgres implementation's referential behavior
// on delete: grants on a removed structure are dropped and users homed there
// are detached.
type MemoryStore struct {
	mu sync.RWMutex

	structures map[int64]Structure
	grants     map[int64]Grant
	users      map[int64]User

	nextStructureID int64
	nextGrantID     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		structures: make(map[int64]Structure),
		grants:     make(map[int64]Grant),
		users:      make(map[int64]User),
	}
}

func (m *MemoryStore) CreateStructure(ctx context.Context, name string, parentID *int64, metadata map[string]string) (Structure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if parentID != nil {
		if _, ok := m.structures[*parentID]; !ok {
			return Structure{}, fmt.Errorf("parent structure %d: %w", *parentID, ErrNotFound)
		}
	}

	m.nextStructureID++
	node := Structure{
		ID:       m.nextStructureID,
		Name:     name,
		ParentID: copyID(parentID),
		Metadata: maps.Clone(metadata),
	}
	m.structures[node.ID] = node
	return cloneStructure(node), nil
}

func (m *MemoryStore) GetStructure(ctx context.Context, id int64) (Structure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.structures[id]
	if !ok {
		return Structure{}, fmt.Errorf("structure %d: %w", id, ErrNotFound)
	}
	return cloneStructure(node), nil
}

func (m *MemoryStore) ListStructures(ctx context.Context) ([]Structure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]Structure, 0, len(m.structures))
	for _, node := range m.structures {
		all = append(all, cloneStructure(node))
	}
	slices.SortFunc(all, func(a, b Structure) int {
		return int(a.ID - b.ID)
	})
	return all, nil
}

func (m *MemoryStore) UpdateStructure(ctx context.Context, id int64, name string, metadata map[string]string) (Structure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.structures[id]
	if !ok {
		return Structure{}, fmt.Errorf("structure %d: %w", id, ErrNotFound)
	}
	node.Name = name
	if metadata != nil {
		node.Metadata = maps.Clone(metadata)
	}
	m.structures[id] = node
	return cloneStructure(node), nil
}

func (m *MemoryStore) SetStructureParent(ctx context.Context, id int64, parentID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.structures[id]
	if !ok {
		return fmt.Errorf("structure %d: %w", id, ErrNotFound)
	}
	if parentID != nil {
		if _, ok := m.structures[*parentID]; !ok {
			return fmt.Errorf("parent structure %d: %w", *parentID, ErrNotFound)
		}
	}
	node.ParentID = copyID(parentID)
	m.structures[id] = node
	return nil
}

func (m *MemoryStore) DeleteStructure(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.structures[id]; !ok {
		return fmt.Errorf("structure %d: %w", id, ErrNotFound)
	}
	delete(m.structures, id)

	for grantID, grant := range m.grants {
		if grant.StructureID == id {
			delete(m.grants, grantID)
		}
	}
	for userID, user := range m.users {
		if user.StructureID != nil && *user.StructureID == id {
			user.StructureID = nil
			m.users[userID] = user
		}
	}
	return nil
}

func (m *MemoryStore) CountChildren(ctx context.Context, id int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, node := range m.structures {
		if node.ParentID != nil && *node.ParentID == id {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CreateGrant(ctx context.Context, userID, structureID int64, metadata map[string]string) (Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return Grant{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if _, ok := m.structures[structureID]; !ok {
		return Grant{}, fmt.Errorf("structure %d: %w", structureID, ErrNotFound)
	}

	m.nextGrantID++
	grant := Grant{
		ID:          m.nextGrantID,
		UserID:      userID,
		StructureID: structureID,
		Metadata:    maps.Clone(metadata),
	}
	m.grants[grant.ID] = grant
	return grant, nil
}

func (m *MemoryStore) GetGrant(ctx context.Context, id int64) (Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grant, ok := m.grants[id]
	if !ok {
		return Grant{}, fmt.Errorf("grant %d: %w", id, ErrNotFound)
	}
	return grant, nil
}

func (m *MemoryStore) ListGrantsForUser(ctx context.Context, userID int64) ([]Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var grants []Grant
	for _, grant := range m.grants {
		if grant.UserID == userID {
			grants = append(grants, grant)
		}
	}
	slices.SortFunc(grants, func(a, b Grant) int {
		return int(a.ID - b.ID)
	})
	return grants, nil
}

func (m *MemoryStore) DeleteGrant(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.grants[id]; !ok {
		return fmt.Errorf("grant %d: %w", id, ErrNotFound)
	}
	delete(m.grants, id)
	return nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, id int64, structureID *int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; ok {
		return User{}, fmt.Errorf("user %d already exists: %w", id, ErrInvalidOperation)
	}
	if structureID != nil {
		if _, ok := m.structures[*structureID]; !ok {
			return User{}, fmt.Errorf("structure %d: %w", *structureID, ErrNotFound)
		}
	}
	user := User{ID: id, StructureID: copyID(structureID)}
	m.users[id] = user
	return cloneUser(user), nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return cloneUser(user), nil
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]User, 0, len(m.users))
	for _, user := range m.users {
		all = append(all, cloneUser(user))
	}
	slices.SortFunc(all, func(a, b User) int {
		return int(a.ID - b.ID)
	})
	return all, nil
}

func (m *MemoryStore) SetUserStructure(ctx context.Context, id int64, structureID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if structureID != nil {
		if _, ok := m.structures[*structureID]; !ok {
			return fmt.Errorf("structure %d: %w", *structureID, ErrNotFound)
		}
	}
	user.StructureID = copyID(structureID)
	m.users[id] = user
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneStructure(node Structure) Structure {
	node.ParentID = copyID(node.ParentID)
	node.Metadata = maps.Clone(node.Metadata)
	return node
}

func cloneUser(user User) User {
	user.StructureID = copyID(user.StructureID)
	return user
}

package hierarchy

import (
	"context"
	"fmt"
	"slices"
)

// DefaultMaxDepth bounds traversal depth. Organizational depth is unbounded
// in the model, but a walk past this many levels indicates corrupt data and
// fails with ErrTreeTooDeep instead of looping.
const DefaultMaxDepth = 1000

// Resolver computes ancestor and descendant closures over the structure tree.
// It is pure: no caching, no mutation, every call reads the store.
type Resolver struct {
	structures StructureStore
	maxDepth   int
}

type ResolverParams struct {
	Structures StructureStore
	// MaxDepth overrides DefaultMaxDepth when > 0.
	MaxDepth int
}

func NewResolver(params ResolverParams) *Resolver {
	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{
		structures: params.Structures,
		maxDepth:   maxDepth,
	}
}

// snapshot is an adjacency view of the forest: nodes by id and child ids by
// parent id, children sorted ascending so traversal order is deterministic
// for a given tree state.
type snapshot struct {
	nodes    map[int64]Structure
	children map[int64][]int64
}

func (r *Resolver) load(ctx context.Context) (*snapshot, error) {
	all, err := r.structures.ListStructures(ctx)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		nodes:    make(map[int64]Structure, len(all)),
		children: make(map[int64][]int64),
	}
	for _, node := range all {
		snap.nodes[node.ID] = node
		if node.ParentID != nil {
			snap.children[*node.ParentID] = append(snap.children[*node.ParentID], node.ID)
		}
	}
	for parentID := range snap.children {
		slices.Sort(snap.children[parentID])
	}
	return snap, nil
}

// Descendants returns every node below id, breadth-first with children
// ordered by id within a level. The node itself is excluded.
func (r *Resolver) Descendants(ctx context.Context, id int64) ([]Structure, error) {
	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.nodes[id]; !ok {
		return nil, fmt.Errorf("structure %d: %w", id, ErrNotFound)
	}

	var result []Structure
	level := []int64{id}
	for depth := 0; len(level) > 0; depth++ {
		if depth >= r.maxDepth {
			return nil, fmt.Errorf("descendants of structure %d exceed %d levels: %w", id, r.maxDepth, ErrTreeTooDeep)
		}
		var next []int64
		for _, nodeID := range level {
			for _, childID := range snap.children[nodeID] {
				result = append(result, snap.nodes[childID])
				next = append(next, childID)
			}
		}
		level = next
	}
	return result, nil
}

// Ancestors returns the chain from the immediate parent up to the root.
func (r *Resolver) Ancestors(ctx context.Context, id int64) ([]Structure, error) {
	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	node, ok := snap.nodes[id]
	if !ok {
		return nil, fmt.Errorf("structure %d: %w", id, ErrNotFound)
	}
	return snap.ancestorsOf(node, r.maxDepth)
}

func (s *snapshot) ancestorsOf(node Structure, maxDepth int) ([]Structure, error) {
	var chain []Structure
	current := node
	for current.ParentID != nil {
		if len(chain) >= maxDepth {
			return nil, fmt.Errorf("ancestors of structure %d exceed %d levels: %w", node.ID, maxDepth, ErrTreeTooDeep)
		}
		parent, ok := s.nodes[*current.ParentID]
		if !ok {
			return nil, fmt.Errorf("structure %d references missing parent %d: %w", current.ID, *current.ParentID, ErrNotFound)
		}
		chain = append(chain, parent)
		current = parent
	}
	return chain, nil
}

package hierarchy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lattice-hq/orgtree/backend/internal/util"
	"github.com/lattice-hq/orgtree/backend/pkg/cache"
	"github.com/lattice-hq/orgtree/backend/pkg/logger"
)

// TreeLeaseKey serializes all structural writes. One lease for the whole
// forest: structural writes are rare next to reads, and a single lease makes
// the cycle-check-then-write sequence race-free without lock ordering between
// overlapping subtrees.
const TreeLeaseKey = "tree:write"

const (
	invalidateRetries = 3
	invalidateTimeout = 10 * time.Second
)

// Locker serializes the critical section around structural writes.
// Production uses a Postgres lease; tests use MutexLocker.
type Locker interface {
	WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// MutexLocker is an in-process Locker for single-replica and test setups.
type MutexLocker struct {
	mu sync.Mutex
}

func (l *MutexLocker) WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

// InvalidationPublisher fans invalidations out to other replicas holding
// in-process caches. Publishing is best-effort and never blocks a write.
type InvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, keys []string, prefixes []string) error
}

// Coordinator wraps every write that can change the truth of a cached
// decision with its invalidation footprint. A mutation is only complete once
// it is classified here; handlers never write to the stores directly.
type Coordinator struct {
	store     Store
	resolver  *Resolver
	cache     cache.Client
	locker    Locker
	publisher InvalidationPublisher
}

type CoordinatorParams struct {
	Store    Store
	Resolver *Resolver
	Cache    cache.Client
	Locker   Locker
	// Publisher may be nil when running a single replica.
	Publisher InvalidationPublisher
}

func NewCoordinator(params CoordinatorParams) *Coordinator {
	locker := params.Locker
	if locker == nil {
		locker = &MutexLocker{}
	}
	return &Coordinator{
		store:     params.Store,
		resolver:  params.Resolver,
		cache:     params.Cache,
		locker:    locker,
		publisher: params.Publisher,
	}
}

// CreateStructure inserts a node under parentID (nil for a new root). The
// new node's ancestors had it added to their descendant closures, so their
// cached descendant sets are dropped; the node itself has no entries yet.
func (c *Coordinator) CreateStructure(ctx context.Context, name string, parentID *int64, metadata map[string]string) (Structure, error) {
	if name == "" {
		return Structure{}, fmt.Errorf("structure name must not be empty: %w", ErrInvalidOperation)
	}

	var created Structure
	err := c.locker.WithLease(ctx, TreeLeaseKey, func(ctx context.Context) error {
		var staleKeys []string
		if parentID != nil {
			parent, err := c.store.GetStructure(ctx, *parentID)
			if err != nil {
				return err
			}
			ancestors, err := c.resolver.Ancestors(ctx, parent.ID)
			if err != nil {
				return err
			}
			staleKeys = append(staleKeys, DescendantsKey(parent.ID))
			for _, node := range ancestors {
				staleKeys = append(staleKeys, DescendantsKey(node.ID))
			}
		}

		node, err := c.store.CreateStructure(ctx, name, parentID, metadata)
		if err != nil {
			return err
		}
		created = node

		c.invalidate(ctx, staleKeys, nil)
		return nil
	})
	return created, err
}

// UpdateStructure renames a node or replaces its metadata. Cached results are
// id sets, so no invalidation is owed.
func (c *Coordinator) UpdateStructure(ctx context.Context, id int64, name string, metadata map[string]string) (Structure, error) {
	if name == "" {
		return Structure{}, fmt.Errorf("structure name must not be empty: %w", ErrInvalidOperation)
	}
	return c.store.UpdateStructure(ctx, id, name, metadata)
}

// MoveStructure re-parents id under newParentID (nil detaches it into a new
// root). Self-parenting is ErrInvalidOperation; moving under a descendant is
// ErrCycleDetected, detected by walking the new parent's ancestor chain.
// Invalidated: descendant sets along both the old and new ancestor chains,
// the whole ancestors family (every node in the moved subtree has a new
// chain), and every accessible set (enumerating affected users precisely
// would cost another traversal, so precision is traded for simplicity).
func (c *Coordinator) MoveStructure(ctx context.Context, id int64, newParentID *int64) error {
	return c.locker.WithLease(ctx, TreeLeaseKey, func(ctx context.Context) error {
		if _, err := c.store.GetStructure(ctx, id); err != nil {
			return err
		}

		if newParentID != nil {
			if *newParentID == id {
				return fmt.Errorf("structure %d cannot be its own parent: %w", id, ErrInvalidOperation)
			}
			parentChain, err := c.resolver.Ancestors(ctx, *newParentID)
			if err != nil {
				return err
			}
			for _, node := range parentChain {
				if node.ID == id {
					return fmt.Errorf("structure %d is a descendant of %d: %w", *newParentID, id, ErrCycleDetected)
				}
			}
		}

		oldChain, err := c.resolver.Ancestors(ctx, id)
		if err != nil {
			return err
		}

		if err := c.store.SetStructureParent(ctx, id, newParentID); err != nil {
			return err
		}

		newChain, err := c.resolver.Ancestors(ctx, id)
		if err != nil {
			return err
		}

		staleKeys := []string{AncestorsKey(id)}
		for _, node := range oldChain {
			staleKeys = append(staleKeys, DescendantsKey(node.ID))
		}
		for _, node := range newChain {
			staleKeys = append(staleKeys, DescendantsKey(node.ID))
		}

		c.invalidate(ctx, staleKeys, []string{ancestorsKeyPrefix, accessibleKeyPrefix})
		return nil
	})
}

// DeleteStructure removes a leaf. Nodes with children are rejected with
// ErrHasChildren; deletion never cascades, callers re-parent or delete
// children first. Users homed at the node are detached (home set to null) and
// grants on it are dropped by the store, hence the coarse accessible-set
// invalidation alongside the ancestor chain's descendant sets.
func (c *Coordinator) DeleteStructure(ctx context.Context, id int64) error {
	return c.locker.WithLease(ctx, TreeLeaseKey, func(ctx context.Context) error {
		if _, err := c.store.GetStructure(ctx, id); err != nil {
			return err
		}

		children, err := c.store.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("structure %d has %d children: %w", id, children, ErrHasChildren)
		}

		chain, err := c.resolver.Ancestors(ctx, id)
		if err != nil {
			return err
		}

		if err := c.store.DeleteStructure(ctx, id); err != nil {
			return err
		}

		staleKeys := []string{DescendantsKey(id), AncestorsKey(id)}
		for _, node := range chain {
			staleKeys = append(staleKeys, DescendantsKey(node.ID))
		}

		c.invalidate(ctx, staleKeys, []string{accessibleKeyPrefix})
		return nil
	})
}

// GrantAccess records an explicit grant of structureID to userID. Duplicate
// grants for the same pair are allowed; resolution unions them away.
func (c *Coordinator) GrantAccess(ctx context.Context, userID, structureID int64, metadata map[string]string) (Grant, error) {
	if _, err := c.store.GetUser(ctx, userID); err != nil {
		return Grant{}, err
	}
	if _, err := c.store.GetStructure(ctx, structureID); err != nil {
		return Grant{}, err
	}

	grant, err := c.store.CreateGrant(ctx, userID, structureID, metadata)
	if err != nil {
		return Grant{}, err
	}

	c.invalidate(ctx, []string{AccessibleKey(userID)}, nil)
	return grant, nil
}

// RevokeAccess deletes a grant and drops the holder's accessible set.
func (c *Coordinator) RevokeAccess(ctx context.Context, grantID int64) error {
	grant, err := c.store.GetGrant(ctx, grantID)
	if err != nil {
		return err
	}
	if err := c.store.DeleteGrant(ctx, grantID); err != nil {
		return err
	}

	c.invalidate(ctx, []string{AccessibleKey(grant.UserID)}, nil)
	return nil
}

// SetUserStructure re-homes a user (nil clears the home, revoking derived
// access). Only that user's accessible set changes.
func (c *Coordinator) SetUserStructure(ctx context.Context, userID int64, structureID *int64) error {
	if _, err := c.store.GetUser(ctx, userID); err != nil {
		return err
	}
	if structureID != nil {
		if _, err := c.store.GetStructure(ctx, *structureID); err != nil {
			return err
		}
	}

	if err := c.store.SetUserStructure(ctx, userID, structureID); err != nil {
		return err
	}

	c.invalidate(ctx, []string{AccessibleKey(userID)}, nil)
	return nil
}

// invalidate applies the footprint with bounded retry. The data write has
// already committed when this runs, so cancellation of the request context
// must not abort it; a persistent failure leaves a security-relevant stale
// entry and is logged as an error for alerting, while the write stands.
func (c *Coordinator) invalidate(ctx context.Context, keys []string, prefixes []string) {
	if len(keys) == 0 && len(prefixes) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	err := util.RetryErrWithContext(ctx, invalidateRetries, func(ctx context.Context) error {
		if len(keys) > 0 {
			if err := c.cache.Delete(ctx, keys...); err != nil {
				return err
			}
		}
		for _, prefix := range prefixes {
			if err := c.cache.DeleteMatching(ctx, prefix); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("[Mutation] Cache invalidation failed, stale authorization entries possible",
			"keys", len(keys), "prefixes", len(prefixes), "err", err)
	}

	if c.publisher != nil {
		if err := c.publisher.PublishInvalidation(ctx, keys, prefixes); err != nil {
			logger.Warn("[Mutation] Failed to publish invalidation fan-out", "err", err)
		}
	}
}

package hierarchy

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lattice-hq/orgtree/backend/pkg/cache"
	"github.com/lattice-hq/orgtree/backend/pkg/logger"
)

// Cache key families. The Coordinator's invalidation contract is written
// against these, so any new cached result needs a family here and a row in
// that contract before it ships.
const (
	accessibleKeyPrefix  = "accessible:"
	descendantsKeyPrefix = "structure:descendants:"
	ancestorsKeyPrefix   = "structure:ancestors:"
)

func AccessibleKey(userID int64) string {
	return accessibleKeyPrefix + strconv.FormatInt(userID, 10)
}

func DescendantsKey(structureID int64) string {
	return descendantsKeyPrefix + strconv.FormatInt(structureID, 10)
}

func AncestorsKey(structureID int64) string {
	return ancestorsKeyPrefix + strconv.FormatInt(structureID, 10)
}

// AccessService is the single authorization entry point for the CRUD layer.
// It composes the resolver with the cache: hits are served directly, misses
// recompute from the store and repopulate. A failing cache never fails a
// read; the service falls through to direct computation and logs once.
type AccessService struct {
	users    UserDirectory
	grants   GrantStore
	resolver *Resolver
	cache    cache.Client
	ttl      time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

type AccessServiceParams struct {
	Users    UserDirectory
	Grants   GrantStore
	Resolver *Resolver
	Cache    cache.Client
	// TTL for populated entries; defaults to cache.DefaultTTL.
	TTL time.Duration
}

func NewAccessService(params AccessServiceParams) *AccessService {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &AccessService{
		users:    params.Users,
		grants:   params.Grants,
		resolver: params.Resolver,
		cache:    params.Cache,
		ttl:      ttl,
	}
}

// AccessibleStructures resolves the full set of structure ids userID may see:
// the user's home structure, its descendant closure, and the structures of
// the user's explicit grants. The result is sorted ascending and cached under
// AccessibleKey(userID). A user without a home structure has no derived
// access; grants alone still apply.
func (s *AccessService) AccessibleStructures(ctx context.Context, userID int64) ([]int64, error) {
	key := AccessibleKey(userID)
	if ids, ok := s.cachedIDs(ctx, key); ok {
		return ids, nil
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	if user.StructureID != nil {
		descendants, err := s.resolver.Descendants(ctx, *user.StructureID)
		if err != nil {
			return nil, err
		}
		seen[*user.StructureID] = true
		for _, node := range descendants {
			seen[node.ID] = true
		}
	}

	grants, err := s.grants.ListGrantsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, grant := range grants {
		seen[grant.StructureID] = true
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	s.storeIDs(ctx, key, ids)
	return ids, nil
}

// CanAccess reports whether requesterID may see targetUserID. Self-access is
// always allowed and short-circuits before any lookup. Otherwise the answer
// is membership of the target's home structure in the requester's accessible
// set, so pairwise checks ride the accessible-set cache and need no cache
// family of their own.
func (s *AccessService) CanAccess(ctx context.Context, requesterID, targetUserID int64) (bool, error) {
	if requesterID == targetUserID {
		return true, nil
	}

	target, err := s.users.GetUser(ctx, targetUserID)
	if err != nil {
		return false, err
	}
	if target.StructureID == nil {
		return false, nil
	}

	accessible, err := s.AccessibleStructures(ctx, requesterID)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(accessible, *target.StructureID)
	return found, nil
}

// Descendants is the cached variant of Resolver.Descendants, returning ids in
// the resolver's breadth-first order.
func (s *AccessService) Descendants(ctx context.Context, structureID int64) ([]int64, error) {
	key := DescendantsKey(structureID)
	if ids, ok := s.cachedIDs(ctx, key); ok {
		return ids, nil
	}
	nodes, err := s.resolver.Descendants(ctx, structureID)
	if err != nil {
		return nil, err
	}
	ids := structureIDs(nodes)
	s.storeIDs(ctx, key, ids)
	return ids, nil
}

// Ancestors is the cached variant of Resolver.Ancestors, ids in root-ward
// order.
func (s *AccessService) Ancestors(ctx context.Context, structureID int64) ([]int64, error) {
	key := AncestorsKey(structureID)
	if ids, ok := s.cachedIDs(ctx, key); ok {
		return ids, nil
	}
	nodes, err := s.resolver.Ancestors(ctx, structureID)
	if err != nil {
		return nil, err
	}
	ids := structureIDs(nodes)
	s.storeIDs(ctx, key, ids)
	return ids, nil
}

// CacheHits and CacheMisses expose counters for tests and metrics.
func (s *AccessService) CacheHits() int64   { return s.hits.Load() }
func (s *AccessService) CacheMisses() int64 { return s.misses.Load() }

func (s *AccessService) cachedIDs(ctx context.Context, key string) ([]int64, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("[Access] Cache read failed, computing directly", "key", key, "err", err)
		s.misses.Add(1)
		return nil, false
	}
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		logger.Warn("[Access] Discarding undecodable cache entry", "key", key, "err", err)
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return ids, true
}

func (s *AccessService) storeIDs(ctx context.Context, key string, ids []int64) {
	encoded, err := json.Marshal(ids)
	if err != nil {
		logger.Warn("[Access] Failed to encode cache entry", "key", key, "err", err)
		return
	}
	if err := s.cache.Set(ctx, key, string(encoded), s.ttl); err != nil {
		logger.Warn("[Access] Cache write failed", "key", key, "err", err)
	}
}

func structureIDs(nodes []Structure) []int64 {
	ids := make([]int64, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID
	}
	return ids
}

// ContainsStructure is a convenience membership check against a sorted
// accessible set, used by handlers scoping single-structure reads.
func ContainsStructure(accessible []int64, structureID int64) bool {
	_, found := slices.BinarySearch(accessible, structureID)
	return found
}

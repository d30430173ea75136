package hierarchy

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/lattice-hq/orgtree/backend/pkg/cache"
)

// failingCache errors on every operation, standing in for an unreachable
// cache backend.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("cache unavailable")
}

func (failingCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return errors.New("cache unavailable")
}

func (failingCache) Delete(ctx context.Context, keys ...string) error {
	return errors.New("cache unavailable")
}

func (failingCache) DeleteMatching(ctx context.Context, prefix string) error {
	return errors.New("cache unavailable")
}

func newTestAccessService(store *MemoryStore, client cache.Client) *AccessService {
	resolver := NewResolver(ResolverParams{Structures: store})
	return NewAccessService(AccessServiceParams{
		Users:    store,
		Grants:   store,
		Resolver: resolver,
		Cache:    client,
	})
}

func mustCreateUser(t *testing.T, store *MemoryStore, id int64, structureID *int64) {
	t.Helper()
	if _, err := store.CreateUser(context.Background(), id, structureID); err != nil {
		t.Fatalf("failed to create user %d: %v", id, err)
	}
}

func TestAccessibleStructuresFromHome(t *testing.T) {
	store := NewMemoryStore()
	_, eng, platform, product, _ := buildForest(t, store)
	mustCreateUser(t, store, 10, &eng.ID)

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	got, err := svc.AccessibleStructures(context.Background(), 10)
	if err != nil {
		t.Fatalf("AccessibleStructures failed: %v", err)
	}

	// Home plus its descendant closure, sorted ascending. Siblings and
	// ancestors of the home are out.
	want := []int64{eng.ID, platform.ID, product.ID}
	if !slices.Equal(got, want) {
		t.Fatalf("expected accessible set %v, got %v", want, got)
	}
}

func TestAccessibleStructuresIncludesGrants(t *testing.T) {
	store := NewMemoryStore()
	_, eng, platform, product, sales := buildForest(t, store)
	mustCreateUser(t, store, 10, &eng.ID)
	if _, err := store.CreateGrant(context.Background(), 10, sales.ID, nil); err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	got, err := svc.AccessibleStructures(context.Background(), 10)
	if err != nil {
		t.Fatalf("AccessibleStructures failed: %v", err)
	}

	want := []int64{eng.ID, platform.ID, product.ID, sales.ID}
	if !slices.Equal(got, want) {
		t.Fatalf("expected accessible set %v, got %v", want, got)
	}
}

func TestAccessibleStructuresWithoutHome(t *testing.T) {
	store := NewMemoryStore()
	_, _, _, _, sales := buildForest(t, store)
	mustCreateUser(t, store, 10, nil)
	if _, err := store.CreateGrant(context.Background(), 10, sales.ID, nil); err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	got, err := svc.AccessibleStructures(context.Background(), 10)
	if err != nil {
		t.Fatalf("AccessibleStructures failed: %v", err)
	}

	// No home means no derived access; only the explicit grant remains.
	want := []int64{sales.ID}
	if !slices.Equal(got, want) {
		t.Fatalf("expected accessible set %v, got %v", want, got)
	}
}

func TestAccessibleStructuresDuplicateGrants(t *testing.T) {
	store := NewMemoryStore()
	_, eng, platform, product, _ := buildForest(t, store)
	mustCreateUser(t, store, 10, &eng.ID)
	// Granting a structure the user already reaches, twice. Resolution treats
	// the result as a set either way.
	for i := 0; i < 2; i++ {
		if _, err := store.CreateGrant(context.Background(), 10, platform.ID, nil); err != nil {
			t.Fatalf("failed to create grant: %v", err)
		}
	}

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	got, err := svc.AccessibleStructures(context.Background(), 10)
	if err != nil {
		t.Fatalf("AccessibleStructures failed: %v", err)
	}

	want := []int64{eng.ID, platform.ID, product.ID}
	if !slices.Equal(got, want) {
		t.Fatalf("expected accessible set %v, got %v", want, got)
	}
}

func TestAccessibleStructuresUnknownUser(t *testing.T) {
	store := NewMemoryStore()
	buildForest(t, store)

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	if _, err := svc.AccessibleStructures(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccessibleStructuresCached(t *testing.T) {
	store := NewMemoryStore()
	_, eng, _, _, _ := buildForest(t, store)
	mustCreateUser(t, store, 10, &eng.ID)

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	first, err := svc.AccessibleStructures(context.Background(), 10)
	if err != nil {
		t.Fatalf("first resolution failed: %v", err)
	}
	second, err := svc.AccessibleStructures(context.Background(), 10)
	if err != nil {
		t.Fatalf("second resolution failed: %v", err)
	}

	if !slices.Equal(first, second) {
		t.Fatalf("cached result %v differs from computed %v", second, first)
	}
	if svc.CacheHits() != 1 {
		t.Fatalf("expected 1 cache hit, got %d", svc.CacheHits())
	}
	if svc.CacheMisses() != 1 {
		t.Fatalf("expected 1 cache miss, got %d", svc.CacheMisses())
	}
}

func TestAccessibleStructuresCacheFailure(t *testing.T) {
	store := NewMemoryStore()
	_, eng, platform, product, _ := buildForest(t, store)
	mustCreateUser(t, store, 10, &eng.ID)

	svc := newTestAccessService(store, failingCache{})

	// Reads never fail on cache errors; every call computes directly.
	for i := 0; i < 2; i++ {
		got, err := svc.AccessibleStructures(context.Background(), 10)
		if err != nil {
			t.Fatalf("resolution with failing cache errored: %v", err)
		}
		want := []int64{eng.ID, platform.ID, product.ID}
		if !slices.Equal(got, want) {
			t.Fatalf("expected accessible set %v, got %v", want, got)
		}
	}
	if svc.CacheHits() != 0 {
		t.Fatalf("expected no cache hits, got %d", svc.CacheHits())
	}
}

func TestCanAccessSelf(t *testing.T) {
	store := NewMemoryStore()
	mustCreateUser(t, store, 10, nil)

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	// Self-access holds even for users with no home and no grants, and even
	// for ids the directory has never seen.
	for _, id := range []int64{10, 99} {
		ok, err := svc.CanAccess(context.Background(), id, id)
		if err != nil {
			t.Fatalf("CanAccess(%d, %d) failed: %v", id, id, err)
		}
		if !ok {
			t.Fatalf("expected self-access for user %d", id)
		}
	}
}

func TestCanAccess(t *testing.T) {
	store := NewMemoryStore()
	root, eng, platform, _, sales := buildForest(t, store)

	mustCreateUser(t, store, 10, &eng.ID)      // manager homed at eng
	mustCreateUser(t, store, 11, &platform.ID) // report below them
	mustCreateUser(t, store, 12, &sales.ID)    // other branch
	mustCreateUser(t, store, 13, &root.ID)     // above them
	mustCreateUser(t, store, 14, nil)          // homeless

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	cases := []struct {
		name      string
		requester int64
		target    int64
		want      bool
	}{
		{"descendant user", 10, 11, true},
		{"user homed above", 10, 13, false},
		{"sibling branch", 10, 12, false},
		{"upward is not allowed", 11, 10, false},
		{"target without home", 10, 14, false},
	}
	for _, tc := range cases {
		got, err := svc.CanAccess(context.Background(), tc.requester, tc.target)
		if err != nil {
			t.Fatalf("%s: CanAccess failed: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCanAccessThroughGrant(t *testing.T) {
	store := NewMemoryStore()
	_, eng, _, _, sales := buildForest(t, store)
	mustCreateUser(t, store, 10, &eng.ID)
	mustCreateUser(t, store, 12, &sales.ID)
	if _, err := store.CreateGrant(context.Background(), 10, sales.ID, nil); err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	ok, err := svc.CanAccess(context.Background(), 10, 12)
	if err != nil {
		t.Fatalf("CanAccess failed: %v", err)
	}
	if !ok {
		t.Fatal("expected access through the explicit grant")
	}
}

func TestCachedDescendantsAndAncestors(t *testing.T) {
	store := NewMemoryStore()
	root, eng, platform, product, sales := buildForest(t, store)

	svc := newTestAccessService(store, cache.NewMemory(cache.MemoryParams{}))

	descendants, err := svc.Descendants(context.Background(), root.ID)
	if err != nil {
		t.Fatalf("Descendants failed: %v", err)
	}
	if want := []int64{eng.ID, sales.ID, platform.ID, product.ID}; !slices.Equal(descendants, want) {
		t.Fatalf("expected descendants %v, got %v", want, descendants)
	}

	ancestors, err := svc.Ancestors(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("Ancestors failed: %v", err)
	}
	if want := []int64{eng.ID, root.ID}; !slices.Equal(ancestors, want) {
		t.Fatalf("expected ancestors %v, got %v", want, ancestors)
	}

	// Second round is served from the cache.
	if _, err := svc.Descendants(context.Background(), root.ID); err != nil {
		t.Fatalf("cached Descendants failed: %v", err)
	}
	if _, err := svc.Ancestors(context.Background(), product.ID); err != nil {
		t.Fatalf("cached Ancestors failed: %v", err)
	}
	if svc.CacheHits() != 2 {
		t.Fatalf("expected 2 cache hits, got %d", svc.CacheHits())
	}
}

package db

import (
	"context"
	"time"

	"github.com/lattice-hq/orgtree/backend/pkg/leaselock"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LeaseLocker adapts the Postgres lease client to the coordinator's Locker
// contract, waiting for the lease rather than failing on contention.
type LeaseLocker struct {
	client *leaselock.Client
	opts   leaselock.Options
}

func NewLeaseLocker(pool *pgxpool.Pool) *LeaseLocker {
	return &LeaseLocker{
		client: leaselock.New(pool),
		opts: leaselock.Options{
			TTL:          30 * time.Second,
			Wait:         true,
			WaitInterval: 100 * time.Millisecond,
			WaitJitter:   50 * time.Millisecond,
		},
	}
}

func (l *LeaseLocker) WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return l.client.WithLease(ctx, key, l.opts, fn)
}

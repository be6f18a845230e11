package storage

import (
	"context"
	"fmt"
	"time"
)

// LeaseRepository stores expiring advisory leases in the sync_leases table.
type LeaseRepository struct {
	BaseRepository
}

// NewLeaseRepository creates a new lease repository.
func NewLeaseRepository(db *DB) *LeaseRepository {
	return &LeaseRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// TryAcquire takes the lease for key on behalf of holder until now+ttl.
// An existing lease is only taken over once it has expired. It reports
// whether the lease was obtained.
func (r *LeaseRepository) TryAcquire(ctx context.Context, key, holder string, now time.Time, ttl time.Duration) (bool, error) {
	expires := now.Add(ttl).UnixMilli()

	res, err := r.exec(ctx, `
		INSERT INTO sync_leases (lease_key, holder, expires_at_ms)
		VALUES (?, ?, ?)
		ON CONFLICT (lease_key) DO UPDATE SET
			holder = excluded.holder,
			expires_at_ms = excluded.expires_at_ms
		WHERE sync_leases.expires_at_ms < ?
	`, key, holder, expires, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", key, err)
	}

	ok, err := affectedOne(res)
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the lease if holder still owns it.
func (r *LeaseRepository) Release(ctx context.Context, key, holder string) error {
	if _, err := r.exec(ctx, `DELETE FROM sync_leases WHERE lease_key = ? AND holder = ?`, key, holder); err != nil {
		return fmt.Errorf("releasing lease %s: %w", key, err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rental-sync/backend/internal/storage/models"
)

const propertyColumns = `id, name, feed_url, sync_enabled, last_synced_at, created_at, updated_at`

// PropertyRepository provides data access for properties.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new property.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	p.ID = GenerateID()
	p.CreatedAt = r.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.exec(ctx, `
		INSERT INTO properties (id, name, feed_url, sync_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.FeedURL, p.SyncEnabled, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}

	return nil
}

// GetByID retrieves a property by its ID. It returns nil if none exists.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	p := &models.Property{}
	err := r.get(ctx, p, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}
	return p, nil
}

// List retrieves all properties ordered by name.
func (r *PropertyRepository) List(ctx context.Context) ([]models.Property, error) {
	properties := []models.Property{}
	if err := r.selectAll(ctx, &properties, `SELECT `+propertyColumns+` FROM properties ORDER BY name`); err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	return properties, nil
}

// ListSyncEnabled retrieves the properties that take part in a global sync:
// sync enabled and a feed URL present. The list is read fresh on every call.
func (r *PropertyRepository) ListSyncEnabled(ctx context.Context) ([]models.Property, error) {
	properties := []models.Property{}
	err := r.selectAll(ctx, &properties, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE sync_enabled = ? AND feed_url <> ''
		ORDER BY name
	`, true)
	if err != nil {
		return nil, fmt.Errorf("querying sync-enabled properties: %w", err)
	}
	return properties, nil
}

// Update updates the collaborator-managed fields of a property.
func (r *PropertyRepository) Update(ctx context.Context, p *models.Property) error {
	p.UpdatedAt = r.Now()

	res, err := r.exec(ctx, `
		UPDATE properties SET name = ?, feed_url = ?, sync_enabled = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.FeedURL, p.SyncEnabled, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}

	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}
	if !ok {
		return fmt.Errorf("property %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// MarkSynced records a successful sync. It is the only property column the
// sync process writes.
func (r *PropertyRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	res, err := r.exec(ctx, `UPDATE properties SET last_synced_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("marking property synced: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("marking property synced: %w", err)
	}
	if !ok {
		return fmt.Errorf("property %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a property and, through the foreign key, its reservations.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	if !ok {
		return fmt.Errorf("property %s: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns the number of properties.
func (r *PropertyRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.get(ctx, &n, `SELECT COUNT(*) FROM properties`); err != nil {
		return 0, fmt.Errorf("counting properties: %w", err)
	}
	return n, nil
}

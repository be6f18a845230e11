package models

import "time"

// Property is a rental unit that may carry an external calendar feed.
type Property struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	FeedURL      string     `db:"feed_url" json:"feed_url"`
	SyncEnabled  bool       `db:"sync_enabled" json:"sync_enabled"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// HasFeed reports whether the property has a feed URL configured.
func (p *Property) HasFeed() bool {
	return p.FeedURL != ""
}

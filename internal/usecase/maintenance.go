package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

// PurgeResult reports a purge.
type PurgeResult struct {
	Deleted int64     `json:"deleted"`
	Cutoff  time.Time `json:"cutoff,omitzero"`
	All     bool      `json:"all"`
}

// Maintenance removes stale papers. Favorites and maybe-later papers always survive.
type Maintenance struct {
	store  ports.PaperStore
	now    func() time.Time
	logger *slog.Logger
}

// NewMaintenance builds the purge use case.
func NewMaintenance(store ports.PaperStore, logger *slog.Logger) *Maintenance {
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintenance{store: store, now: time.Now, logger: logger}
}

// Purge deletes unprotected papers published more than days ago, or with all set,
// every disliked paper regardless of age.
func (m *Maintenance) Purge(ctx context.Context, days int, all bool) (PurgeResult, error) {
	if !all && days < 0 {
		return PurgeResult{}, fmt.Errorf("%w: days must not be negative", domain.ErrInvalidArgument)
	}

	result := PurgeResult{All: all}
	if !all {
		result.Cutoff = m.now().UTC().AddDate(0, 0, -days)
	}

	deleted, err := m.store.PurgeStale(ctx, result.Cutoff, all)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("purge stale: %w", err)
	}
	result.Deleted = deleted

	m.logger.Info("purge finished", "deleted", deleted, "days", days, "all", all)
	return result, nil
}

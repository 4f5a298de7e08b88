package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

const defaultMaxAttempts = 20

// Refresher pulls fresh papers when the backlog runs dry.
type Refresher interface {
	IngestRecent(ctx context.Context) (IngestStats, error)
}

// Selector hands out the next recommendation, evaluating inline when nothing is ready.
type Selector struct {
	store       ports.PaperStore
	settings    ports.SettingsStore
	papers      paperEvaluator
	refresher   Refresher
	maxAttempts int
	logger      *slog.Logger
}

// NewSelector builds a selector. refresher may be nil, in which case an empty
// backlog simply yields no recommendation.
func NewSelector(store ports.PaperStore, settings ports.SettingsStore, evaluator ports.Evaluator, refresher Refresher, maxAttempts int, logger *slog.Logger) *Selector {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		store:       store,
		settings:    settings,
		papers:      paperEvaluator{store: store, evaluator: evaluator, logger: logger},
		refresher:   refresher,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Next returns a recommended, undisposed paper or nil when none can be produced.
func (s *Selector) Next(ctx context.Context) (*domain.Paper, error) {
	prof, err := loadProfile(ctx, s.settings)
	if err != nil {
		return nil, err
	}

	refreshed := false
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		ready, err := s.store.FetchReadyUnseen(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("fetch ready: %w", err)
		}
		if len(ready) > 0 {
			return &ready[0], nil
		}

		candidates, err := s.store.FetchUnevaluated(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("fetch unevaluated: %w", err)
		}
		if len(candidates) == 0 {
			if refreshed || s.refresher == nil {
				return nil, nil
			}
			refreshed = true
			stats, err := s.refresher.IngestRecent(ctx)
			if err != nil {
				return nil, fmt.Errorf("refresh backlog: %w", err)
			}
			s.logger.Info("backlog refreshed", "inserted", stats.Inserted)
			continue
		}

		paper, err := s.papers.evaluate(ctx, candidates[0], prof)
		if errors.Is(err, domain.ErrAlreadyEvaluated) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if paper.Recommended {
			return &paper, nil
		}
		s.logger.Debug("candidate rejected", "paper", paper.ExternalID, "reason", paper.Reason, "attempt", attempt)
	}

	s.logger.Info("no recommendation within attempt budget", "attempts", s.maxAttempts)
	return nil, nil
}

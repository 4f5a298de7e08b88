package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

const (
	defaultFoldRetryDelay = 30 * time.Second
	defaultFoldRetries    = 5
)

// FoldResult reports how many favorites a fold absorbed.
type FoldResult struct {
	Folded  int    `json:"folded"`
	Summary string `json:"summary"`
}

// Aggregator keeps the running summary of favorited papers.
type Aggregator struct {
	store     ports.PaperStore
	settings  ports.SettingsStore
	evaluator ports.Evaluator
	logger    *slog.Logger

	mu   sync.Mutex
	wake signal

	retryDelay time.Duration
	maxRetries int
}

// NewAggregator builds the fold worker.
func NewAggregator(store ports.PaperStore, settings ports.SettingsStore, evaluator ports.Evaluator, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:     store,
		settings:  settings,
		evaluator: evaluator,
		logger:    logger,
		wake:      newSignal(),

		retryDelay: defaultFoldRetryDelay,
		maxRetries: defaultFoldRetries,
	}
}

// Fold merges unfolded favorites into the summary and marks exactly that batch folded.
// Folds are serialized; with no new favorites the summary is left untouched.
func (a *Aggregator) Fold(ctx context.Context) (FoldResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prior, err := readSetting(ctx, a.settings, domain.SettingFavoriteSummary)
	if err != nil {
		return FoldResult{}, err
	}

	batch, err := a.store.FetchUnfoldedFavorites(ctx)
	if err != nil {
		return FoldResult{}, fmt.Errorf("fetch unfolded favorites: %w", err)
	}
	if len(batch) == 0 {
		return FoldResult{Summary: prior}, nil
	}

	summary, err := a.evaluator.SummarizeFavorites(ctx, batch, prior)
	if err != nil {
		return FoldResult{}, err
	}
	if err := a.settings.SetSetting(ctx, domain.SettingFavoriteSummary, summary); err != nil {
		return FoldResult{}, fmt.Errorf("store favorite summary: %w", err)
	}

	for _, paper := range batch {
		if err := a.store.MarkFolded(ctx, paper.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return FoldResult{}, fmt.Errorf("mark folded %d: %w", paper.ID, err)
		}
	}

	a.logger.Info("favorites folded", "papers", len(batch))
	return FoldResult{Folded: len(batch), Summary: summary}, nil
}

// Trigger schedules a deferred fold.
func (a *Aggregator) Trigger() {
	a.wake.notify()
}

// Work folds once per trigger until ctx ends. A failed fold is retried with a growing
// delay, up to maxRetries times; a later trigger starts a fresh round.
func (a *Aggregator) Work(ctx context.Context) error {
	var retry <-chan time.Time
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.wake:
			attempts = 0
		case <-retry:
		}
		retry = nil

		if _, err := a.Fold(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			attempts++
			if attempts > a.maxRetries {
				a.logger.Error("deferred fold abandoned", "attempts", attempts, "error", err)
				attempts = 0
				continue
			}
			delay := a.retryDelay * time.Duration(attempts)
			a.logger.Warn("deferred fold failed", "attempt", attempts, "retry_in", delay, "error", err)
			retry = time.After(delay)
			continue
		}
		attempts = 0
	}
}

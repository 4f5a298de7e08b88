package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

// Feedback applies user dispositions to papers.
type Feedback struct {
	store    ports.PaperStore
	settings ports.SettingsStore
	papers   paperEvaluator
	folds    Triggerer
	logger   *slog.Logger
}

// NewFeedback wires the state machine; folds is nudged whenever a paper is favorited.
func NewFeedback(store ports.PaperStore, settings ports.SettingsStore, evaluator ports.Evaluator, folds Triggerer, logger *slog.Logger) *Feedback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feedback{
		store:    store,
		settings: settings,
		papers:   paperEvaluator{store: store, evaluator: evaluator, logger: logger},
		folds:    folds,
		logger:   logger,
	}
}

// Apply moves the paper to action. Any state may move to any other; an unevaluated paper
// is evaluated first unless the target is none.
func (f *Feedback) Apply(ctx context.Context, id int64, action domain.Disposition, note string) (domain.Paper, error) {
	if !action.Valid() {
		return domain.Paper{}, fmt.Errorf("%w: disposition %d", domain.ErrInvalidArgument, uint8(action))
	}

	paper, err := f.store.Get(ctx, id)
	if err != nil {
		return domain.Paper{}, fmt.Errorf("load paper %d: %w", id, err)
	}

	if action != domain.DispositionNone && !paper.Evaluated {
		prof, err := loadProfile(ctx, f.settings)
		if err != nil {
			return domain.Paper{}, err
		}
		if _, err := f.papers.evaluate(ctx, paper, prof); err != nil && !errors.Is(err, domain.ErrAlreadyEvaluated) {
			return domain.Paper{}, err
		}
	}

	if err := f.store.SetDisposition(ctx, id, action, note); err != nil {
		return domain.Paper{}, fmt.Errorf("set disposition %d: %w", id, err)
	}
	f.logger.Info("disposition applied", "paper", paper.ExternalID, "disposition", action.String())

	if action == domain.DispositionFavorite && f.folds != nil {
		f.folds.Trigger()
	}

	updated, err := f.store.Get(ctx, id)
	if err != nil {
		return domain.Paper{}, fmt.Errorf("reload paper %d: %w", id, err)
	}
	return updated, nil
}

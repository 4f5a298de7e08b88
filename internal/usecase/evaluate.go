package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

// Triggerer is a background worker that can be nudged without blocking.
type Triggerer interface {
	Trigger()
}

// profile is the reader context every scoring prompt embeds.
type profile struct {
	interests       string
	favoriteSummary string
}

// loadProfile prefers the refined interest text and falls back to the raw one.
func loadProfile(ctx context.Context, settings ports.SettingsStore) (profile, error) {
	refined, err := readSetting(ctx, settings, domain.SettingInterestsRefined)
	if err != nil {
		return profile{}, err
	}
	interests := refined
	if interests == "" {
		if interests, err = readSetting(ctx, settings, domain.SettingInterestsRaw); err != nil {
			return profile{}, err
		}
	}
	if interests == "" {
		return profile{}, fmt.Errorf("interest profile: %w", domain.ErrUnconfigured)
	}

	summary, err := readSetting(ctx, settings, domain.SettingFavoriteSummary)
	if err != nil {
		return profile{}, err
	}
	return profile{interests: interests, favoriteSummary: summary}, nil
}

func readSetting(ctx context.Context, settings ports.SettingsStore, key domain.SettingKey) (string, error) {
	value, _, err := settings.GetSetting(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return strings.TrimSpace(value), nil
}

// paperEvaluator scores one paper and persists the verdict, translating recommended papers.
type paperEvaluator struct {
	store     ports.PaperStore
	evaluator ports.Evaluator
	logger    *slog.Logger
}

// evaluate returns the stored paper after its verdict (and translation, if any) was written.
// ErrAlreadyEvaluated means another caller won the single-write race.
func (e paperEvaluator) evaluate(ctx context.Context, paper domain.Paper, p profile) (domain.Paper, error) {
	verdict, err := e.evaluator.Score(ctx, paper, p.interests, p.favoriteSummary)
	if err != nil {
		return domain.Paper{}, err
	}

	if err := e.store.RecordEvaluation(ctx, paper.ID, verdict); err != nil {
		return domain.Paper{}, fmt.Errorf("record evaluation %d: %w", paper.ID, err)
	}

	if verdict.Recommended {
		e.translate(ctx, paper)
	}

	stored, err := e.store.Get(ctx, paper.ID)
	if err != nil {
		return domain.Paper{}, fmt.Errorf("reload paper %d: %w", paper.ID, err)
	}
	return stored, nil
}

// translate is best effort; a failure leaves the translation empty.
func (e paperEvaluator) translate(ctx context.Context, paper domain.Paper) {
	translation, err := e.evaluator.Translate(ctx, paper.Title, paper.Abstract)
	if err != nil {
		e.logger.Warn("translation failed", "paper", paper.ExternalID, "error", err)
		return
	}
	if translation.Title == "" && translation.Abstract == "" {
		return
	}
	if err := e.store.RecordTranslation(ctx, paper.ID, translation); err != nil && !errors.Is(err, domain.ErrNotFound) {
		e.logger.Warn("store translation failed", "paper", paper.ExternalID, "error", err)
	}
}

// signal is a coalescing wake-up channel: any number of sends before a receive collapse into one.
type signal chan struct{}

func newSignal() signal {
	return make(signal, 1)
}

func (s signal) notify() {
	select {
	case s <- struct{}{}:
	default:
	}
}

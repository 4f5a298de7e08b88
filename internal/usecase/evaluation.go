package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

const defaultBatchSize = 10

// CredentialChecker reports whether a language-model credential is present.
type CredentialChecker interface {
	Configured(ctx context.Context) bool
}

// EvaluationConfig tunes the backlog drain.
type EvaluationConfig struct {
	BatchSize int
	Delay     time.Duration
}

// RunStats summarizes one drain.
type RunStats struct {
	Skipped     bool          `json:"skipped"`
	Evaluated   int           `json:"evaluated"`
	Recommended int           `json:"recommended"`
	Failed      int           `json:"failed"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Progress is the backlog snapshot exposed on the status endpoint.
type Progress struct {
	Pending int  `json:"pending"`
	Ready   int  `json:"ready"`
	Running bool `json:"running"`
}

// EvaluationScheduler drains the unevaluated backlog, one run at a time.
type EvaluationScheduler struct {
	store       ports.PaperStore
	settings    ports.SettingsStore
	papers      paperEvaluator
	credentials CredentialChecker
	notifier    ports.Notifier
	cfg         EvaluationConfig
	logger      *slog.Logger

	mu      sync.Mutex
	running atomic.Bool
	wake    signal
	sleep   func(ctx context.Context, d time.Duration) error
}

// EvaluationDeps wires the scheduler's collaborators. Notifier is optional.
type EvaluationDeps struct {
	Store       ports.PaperStore
	Settings    ports.SettingsStore
	Evaluator   ports.Evaluator
	Credentials CredentialChecker
	Notifier    ports.Notifier
	Logger      *slog.Logger
}

// NewEvaluationScheduler builds the drain with defaults for unset knobs.
func NewEvaluationScheduler(deps EvaluationDeps, cfg EvaluationConfig) *EvaluationScheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationScheduler{
		store:       deps.Store,
		settings:    deps.Settings,
		papers:      paperEvaluator{store: deps.Store, evaluator: deps.Evaluator, logger: logger},
		credentials: deps.Credentials,
		notifier:    deps.Notifier,
		cfg:         cfg,
		logger:      logger,
		wake:        newSignal(),
		sleep:       sleepContext,
	}
}

// Run drains the backlog to completion. A concurrent call returns ErrRunInProgress.
// Missing credentials or profile skip the run without error. Per-paper failures are
// logged and retried on the next run; cancellation is honoured between papers.
func (s *EvaluationScheduler) Run(ctx context.Context) (RunStats, error) {
	if !s.mu.TryLock() {
		return RunStats{}, domain.ErrRunInProgress
	}
	defer s.mu.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	started := time.Now()
	stats := RunStats{}

	if s.credentials != nil && !s.credentials.Configured(ctx) {
		s.logger.Info("evaluation skipped", "reason", "llm not configured")
		stats.Skipped = true
		return stats, nil
	}
	prof, err := loadProfile(ctx, s.settings)
	if errors.Is(err, domain.ErrUnconfigured) {
		s.logger.Info("evaluation skipped", "reason", "interest profile not configured")
		stats.Skipped = true
		return stats, nil
	}
	if err != nil {
		return stats, err
	}

	failed := map[int64]struct{}{}
	var recommended []domain.Paper

	defer func() {
		stats.Elapsed = time.Since(started)
		s.logger.Info("evaluation run finished",
			"evaluated", stats.Evaluated,
			"recommended", stats.Recommended,
			"failed", stats.Failed,
			"elapsed", stats.Elapsed,
		)
	}()

	for {
		batch, err := s.store.FetchUnevaluated(ctx, s.cfg.BatchSize+len(failed))
		if err != nil {
			return stats, fmt.Errorf("fetch unevaluated: %w", err)
		}
		batch = withoutFailed(batch, failed)
		if len(batch) == 0 {
			break
		}

		for _, paper := range batch {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			stored, err := s.papers.evaluate(ctx, paper, prof)
			switch {
			case errors.Is(err, domain.ErrAlreadyEvaluated):
			case errors.Is(err, domain.ErrUnconfigured):
				s.logger.Warn("evaluation stopped", "error", err)
				s.publish(ctx, recommended)
				return stats, nil
			case err != nil:
				stats.Failed++
				failed[paper.ID] = struct{}{}
				s.logger.Warn("paper evaluation failed", "paper", paper.ExternalID, "error", err)
			default:
				stats.Evaluated++
				if stored.Recommended {
					stats.Recommended++
					recommended = append(recommended, stored)
				}
			}

			if err := s.sleep(ctx, s.cfg.Delay); err != nil {
				return stats, err
			}
		}
	}

	s.publish(ctx, recommended)
	return stats, nil
}

// Trigger asks the background worker for another drain.
func (s *EvaluationScheduler) Trigger() {
	s.wake.notify()
}

// Work drains once per trigger until ctx ends.
func (s *EvaluationScheduler) Work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			if _, err := s.Run(ctx); err != nil && !errors.Is(err, domain.ErrRunInProgress) && ctx.Err() == nil {
				s.logger.Error("triggered evaluation failed", "error", err)
			}
		}
	}
}

// Progress reports backlog counters.
func (s *EvaluationScheduler) Progress(ctx context.Context) (Progress, error) {
	pending, err := s.store.CountUnevaluated(ctx)
	if err != nil {
		return Progress{}, fmt.Errorf("count unevaluated: %w", err)
	}
	ready, err := s.store.CountReady(ctx)
	if err != nil {
		return Progress{}, fmt.Errorf("count ready: %w", err)
	}
	return Progress{Pending: pending, Ready: ready, Running: s.running.Load()}, nil
}

func (s *EvaluationScheduler) publish(ctx context.Context, papers []domain.Paper) {
	if s.notifier == nil || len(papers) == 0 {
		return
	}
	if err := s.notifier.PublishDigest(ctx, buildDigestMessage(papers)); err != nil {
		s.logger.Warn("publish digest failed", "papers", len(papers), "error", err)
	}
}

func withoutFailed(batch []domain.Paper, failed map[int64]struct{}) []domain.Paper {
	if len(failed) == 0 {
		return batch
	}
	kept := batch[:0]
	for _, paper := range batch {
		if _, skip := failed[paper.ID]; !skip {
			kept = append(kept, paper)
		}
	}
	return kept
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

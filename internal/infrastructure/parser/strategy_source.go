package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
	"PaperFeed/internal/scanner"
)

// StrategySource implements PaperSource via registered scanner strategies.
type StrategySource struct {
	registry   *scanner.Registry
	strategies []string
	maxResults int
	logger     *slog.Logger
}

var _ ports.PaperSource = (*StrategySource)(nil)

// NewStrategySource runs the named strategies in order and merges their results.
func NewStrategySource(reg *scanner.Registry, strategies []string, maxResults int, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:   reg,
		strategies: strategies,
		maxResults: maxResults,
		logger:     log,
	}
}

// Fetch executes every strategy for the window. A failing strategy is logged and skipped
// as long as at least one other strategy succeeds.
func (s *StrategySource) Fetch(ctx context.Context, window ports.Window) ([]domain.Paper, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.strategies) == 0 {
		return nil, fmt.Errorf("no scanner strategies configured")
	}

	req := scanner.Request{
		From:       window.From,
		To:         window.To,
		Categories: window.Categories,
		MaxResults: s.maxResults,
	}
	s.debug("fetch window",
		"from", window.From.Format(domain.WatermarkLayout),
		"to", window.To.Format(domain.WatermarkLayout),
		"categories", window.Categories,
	)

	var (
		aggregated []domain.Paper
		failures   []error
		seen       = map[string]struct{}{}
	)
	for _, name := range s.strategies {
		strategy, err := s.registry.Resolve(name)
		if err != nil {
			return nil, err
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures = append(failures, fmt.Errorf("scan %s: %w", name, err))
			if s.logger != nil {
				s.logger.Warn("strategy failed", "strategy", name, "error", err)
			}
			continue
		}

		for _, paper := range results {
			if _, ok := seen[paper.ExternalID]; ok {
				continue
			}
			seen[paper.ExternalID] = struct{}{}
			aggregated = append(aggregated, paper)
		}
		s.debug("strategy produced papers", "strategy", name, "count", len(results))
	}

	if len(failures) == len(s.strategies) {
		return nil, errors.Join(failures...)
	}

	s.debug("strategy source done", "total_papers", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

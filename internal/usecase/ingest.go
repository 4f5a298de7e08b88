package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

// explicitLookback is the window start when only an end date is requested.
const explicitLookback = 30 * 24 * time.Hour

// IngestRequest narrows an ingestion run. Zero values fall back to settings and the watermark.
type IngestRequest struct {
	Categories []string
	From       time.Time
	To         time.Time
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	From           string   `json:"from"`
	To             string   `json:"to"`
	Categories     []string `json:"categories"`
	Fetched        int      `json:"fetched"`
	Inserted       int      `json:"inserted"`
	AlreadyPresent int      `json:"already_present"`
	Failed         int      `json:"failed"`
}

// Ingestor pulls papers for a date window and stores the new ones.
type Ingestor struct {
	source   ports.PaperSource
	store    ports.PaperStore
	settings ports.SettingsStore
	backlog  Triggerer
	defaults []string
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger

	mu sync.Mutex
}

// NewIngestor wires ingestion. backlog is signalled whenever new papers land.
func NewIngestor(source ports.PaperSource, store ports.PaperStore, settings ports.SettingsStore, backlog Triggerer, defaults []string, loc *time.Location, logger *slog.Logger) *Ingestor {
	if len(defaults) == 0 {
		defaults = domain.DefaultCategories
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		source:   source,
		store:    store,
		settings: settings,
		backlog:  backlog,
		defaults: defaults,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
}

// IngestRecent runs the automatic window from the watermark up to yesterday.
func (i *Ingestor) IngestRecent(ctx context.Context) (IngestStats, error) {
	return i.Ingest(ctx, IngestRequest{})
}

// Ingest fetches the window and upserts every record. Only automatic runs (no explicit
// dates) advance the watermark.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest) (IngestStats, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	categories, err := i.categories(ctx, req.Categories)
	if err != nil {
		return IngestStats{}, err
	}

	automatic := req.From.IsZero() && req.To.IsZero()
	from, to, err := i.window(ctx, req, automatic)
	if err != nil {
		return IngestStats{}, err
	}

	stats := IngestStats{
		From:       from.Format(domain.WatermarkLayout),
		To:         to.Format(domain.WatermarkLayout),
		Categories: categories,
	}

	papers, err := i.source.Fetch(ctx, ports.Window{From: from, To: to, Categories: categories})
	if err != nil {
		return stats, fmt.Errorf("fetch papers: %w", err)
	}
	stats.Fetched = len(papers)

	for _, paper := range papers {
		result, err := i.store.UpsertIngested(ctx, paper)
		switch {
		case errors.Is(err, domain.ErrDuplicateIdentifier):
			stats.AlreadyPresent++
		case err != nil:
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			i.logger.Warn("store paper failed", "paper", paper.ExternalID, "error", err)
		case result == domain.IngestInserted:
			stats.Inserted++
		default:
			stats.AlreadyPresent++
		}
	}

	if stats.Inserted > 0 && i.backlog != nil {
		i.backlog.Trigger()
	}

	if automatic {
		if err := i.settings.SetSetting(ctx, domain.SettingWatermark, stats.To); err != nil {
			return stats, fmt.Errorf("advance watermark: %w", err)
		}
	}

	i.logger.Info("ingestion finished",
		"from", stats.From,
		"to", stats.To,
		"fetched", stats.Fetched,
		"inserted", stats.Inserted,
		"already_present", stats.AlreadyPresent,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (i *Ingestor) categories(ctx context.Context, requested []string) ([]string, error) {
	if cats := cleanCategories(requested); len(cats) > 0 {
		return cats, nil
	}
	stored, err := readSetting(ctx, i.settings, domain.SettingCategories)
	if err != nil {
		return nil, err
	}
	if cats := cleanCategories(strings.Split(stored, ",")); len(cats) > 0 {
		return cats, nil
	}
	return append([]string(nil), i.defaults...), nil
}

// window resolves calendar days in the configured timezone. The end defaults to
// yesterday because arXiv indexes a day's papers with a lag.
func (i *Ingestor) window(ctx context.Context, req IngestRequest, automatic bool) (time.Time, time.Time, error) {
	yesterday := calendarDay(i.now().In(i.location)).AddDate(0, 0, -1)

	to := yesterday
	if !req.To.IsZero() {
		to = calendarDay(req.To)
	}

	var from time.Time
	switch {
	case !req.From.IsZero():
		from = calendarDay(req.From)
	case automatic:
		mark, err := readSetting(ctx, i.settings, domain.SettingWatermark)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = to
		if mark != "" {
			parsed, err := time.Parse(domain.WatermarkLayout, mark)
			if err != nil {
				i.logger.Warn("ignoring malformed watermark", "value", mark, "error", err)
			} else {
				from = parsed
			}
		}
	default:
		from = to.Add(-explicitLookback)
	}

	if from.After(to) {
		from = to
	}
	return from, to, nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// cleanCategories trims, drops empties and de-duplicates while keeping order.
func cleanCategories(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

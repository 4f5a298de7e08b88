package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/infrastructure/storage"
	"PaperFeed/internal/ports"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *storage.Repository {
	t.Helper()

	repo, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func setInterests(t *testing.T, settings ports.SettingsStore, text string) {
	t.Helper()
	require.NoError(t, settings.SetSetting(context.Background(), domain.SettingInterestsRaw, text))
}

func paperFixture(externalID string, published time.Time) domain.Paper {
	return domain.Paper{
		ExternalID:  externalID,
		Title:       "Title " + externalID,
		Abstract:    "Abstract " + externalID,
		Categories:  []string{"cs.AI"},
		PublishedAt: published,
		UpdatedAt:   published,
		PageURL:     "http://arxiv.org/abs/" + externalID,
	}
}

// seed inserts papers and returns them keyed by external id with their store ids.
func seed(t *testing.T, store ports.PaperStore, papers ...domain.Paper) map[string]domain.Paper {
	t.Helper()

	ctx := context.Background()
	for _, p := range papers {
		_, err := store.UpsertIngested(ctx, p)
		require.NoError(t, err)
	}

	stored, err := store.FetchUnevaluated(ctx, 100)
	require.NoError(t, err)
	byID := map[string]domain.Paper{}
	for _, p := range stored {
		byID[p.ExternalID] = p
	}
	return byID
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

type fakeEvaluator struct {
	mu         sync.Mutex
	recommend  map[string]bool
	scoreErr   map[string]error
	scoreCalls []string
	summaries  []string
	refineErr  error
	summaryErr []error
	connected  bool

	entered chan struct{}
	release chan struct{}
}

var _ ports.Evaluator = (*fakeEvaluator)(nil)

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{recommend: map[string]bool{}, scoreErr: map[string]error{}}
}

func (f *fakeEvaluator) Score(ctx context.Context, paper domain.Paper, profile, _ string) (domain.Verdict, error) {
	f.mu.Lock()
	f.scoreCalls = append(f.scoreCalls, paper.ExternalID)
	err := f.scoreErr[paper.ExternalID]
	recommended := f.recommend[paper.ExternalID]
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if err != nil {
		return domain.Verdict{}, err
	}
	if recommended {
		return domain.Verdict{Recommended: true, Reason: "matches " + profile}, nil
	}
	return domain.Verdict{Recommended: false, Reason: "off topic"}, nil
}

func (f *fakeEvaluator) Translate(_ context.Context, title, abstract string) (domain.Translation, error) {
	return domain.Translation{Title: "T:" + title, Abstract: "T:" + abstract}, nil
}

func (f *fakeEvaluator) RefineInterests(_ context.Context, raw string) (string, error) {
	if f.refineErr != nil {
		return "", f.refineErr
	}
	return "refined " + raw, nil
}

func (f *fakeEvaluator) SummarizeFavorites(_ context.Context, batch []domain.Paper, prior string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.summaryErr) > 0 {
		err := f.summaryErr[0]
		f.summaryErr = f.summaryErr[1:]
		return "", err
	}
	summary := fmt.Sprintf("summary #%d over %d papers", len(f.summaries)+1, len(batch))
	if prior != "" {
		summary += " extending " + prior
	}
	f.summaries = append(f.summaries, summary)
	return summary, nil
}

func (f *fakeEvaluator) TestConnection(context.Context) bool {
	return f.connected
}

func (f *fakeEvaluator) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scoreCalls...)
}

func (f *fakeEvaluator) summaryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summaries)
}

type fakeSource struct {
	mu      sync.Mutex
	papers  []domain.Paper
	err     error
	windows []ports.Window
}

func (s *fakeSource) Fetch(_ context.Context, window ports.Window) ([]domain.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, window)
	return s.papers, s.err
}

type countingTrigger struct {
	mu    sync.Mutex
	count int
}

func (c *countingTrigger) Trigger() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingTrigger) triggered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

type staticCredentials bool

func (s staticCredentials) Configured(context.Context) bool { return bool(s) }

type recordingNotifier struct {
	mu      sync.Mutex
	digests []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.digests = append(n.digests, digest)
	return nil
}

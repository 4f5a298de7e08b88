package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperFeed/internal/domain"
)

type recordingDriver struct {
	specs   map[string]string
	jobs    map[string]func(context.Context)
	started bool
	stopped bool
}

func newRecordingDriver() *recordingDriver {
	return &recordingDriver{specs: map[string]string{}, jobs: map[string]func(context.Context){}}
}

func (d *recordingDriver) Add(name, spec string, job func(context.Context)) error {
	d.specs[name] = spec
	d.jobs[name] = job
	return nil
}

func (d *recordingDriver) Start(context.Context) error {
	d.started = true
	return nil
}

func (d *recordingDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestJobsRegisterAndRun(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	setInterests(t, store, "vision")

	source := &fakeSource{papers: []domain.Paper{paperFixture("A", date(2020, time.January, 1))}}
	ev := newFakeEvaluator()
	evaluation := newTestScheduler(store, ev, nil, 10)
	ingestor := NewIngestor(source, store, store, nil, nil, nil, quietLogger())
	maintenance := NewMaintenance(store, quietLogger())

	driver := newRecordingDriver()
	jobs := NewJobs(driver, ingestor, evaluation, maintenance, JobsConfig{
		IngestCron:    "0 6 * * *",
		EvaluateCron:  "*/30 * * * *",
		PurgeCron:     "0 3 * * 0",
		RetentionDays: 30,
	}, quietLogger())

	require.NoError(t, jobs.Start(ctx))
	assert.True(t, driver.started)
	assert.Equal(t, map[string]string{
		"ingest":   "0 6 * * *",
		"evaluate": "*/30 * * * *",
		"purge":    "0 3 * * 0",
	}, driver.specs)

	driver.jobs["ingest"](ctx)
	pending, err := store.CountUnevaluated(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	driver.jobs["evaluate"](ctx)
	assert.Equal(t, []string{"A"}, ev.calls())

	driver.jobs["purge"](ctx)
	pending, err = store.CountUnevaluated(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	page, err := store.ListByDisposition(ctx, domain.DispositionNone, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total, "old undisposed paper purged")

	require.NoError(t, jobs.Stop(ctx))
	assert.True(t, driver.stopped)
}

func TestJobsWithoutDriver(t *testing.T) {
	jobs := NewJobs(nil, nil, nil, nil, JobsConfig{}, nil)
	assert.NoError(t, jobs.Start(context.Background()))
	assert.NoError(t, jobs.Stop(context.Background()))
}

func TestBuildDigestMessage(t *testing.T) {
	assert.Empty(t, buildDigestMessage(nil))

	msg := buildDigestMessage([]domain.Paper{
		{Title: "Sparse Attention", TranslatedTitle: "稀疏注意力", Reason: "core topic", PageURL: "http://arxiv.org/abs/1"},
		{Title: "Robots", Reason: "adjacent", PageURL: "http://arxiv.org/abs/2"},
	})
	assert.Contains(t, msg, "2 new recommendation(s)")
	assert.Contains(t, msg, "- Sparse Attention (稀疏注意力)\ncore topic\nhttp://arxiv.org/abs/1")
	assert.Contains(t, msg, "- Robots\nadjacent")
	assert.NotContains(t, msg[len(msg)-1:], "\n")
}

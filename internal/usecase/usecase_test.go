package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TriRecover/internal/domain/models"
	domrepo "TriRecover/internal/domain/repository"
	"TriRecover/internal/repository"
	"TriRecover/internal/services/assessment"
	"TriRecover/internal/services/exchange"
	"TriRecover/pkg/cache"
	"TriRecover/pkg/kafka"
	"TriRecover/pkg/logger"
	"TriRecover/pkg/metrics"
	"TriRecover/pkg/queue"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.AssessmentEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev models.AssessmentEvent) error {
	return p.PublishBatch(ctx, []models.AssessmentEvent{ev})
}

func (p *recordingPublisher) PublishBatch(_ context.Context, evs []models.AssessmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) dates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Date
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.AssessmentEvent
}

func (n *recordingNotifier) Broadcast(ev models.AssessmentEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

type recordingQueue struct {
	msgType string
	payload any
	err     error
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, payload any) error {
	if q.err != nil {
		return q.err
	}
	q.msgType, q.payload = msgType, payload
	return nil
}

type fixture struct {
	store       *repository.MemoryEntryStore
	settings    *repository.CacheSettingsStore
	pub         *recordingPublisher
	notifier    *recordingNotifier
	assessments *AssessmentService
	entries     *EntryService
}

var refNow = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, backfill *recordingQueue, seed ...models.DailyEntry) *fixture {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	f := &fixture{
		store:    repository.NewMemoryEntryStore(seed...),
		settings: repository.NewCacheSettingsStore(mem),
		pub:      &recordingPublisher{},
		notifier: &recordingNotifier{},
	}
	var q queue.Publisher
	if backfill != nil {
		q = backfill
	}
	f.assessments = NewAssessmentService(f.store, f.settings, assessment.NewEngine(), mem, f.pub, f.notifier, q,
		metrics.Nop{}, logger.Nop(), AssessmentConfig{Location: time.UTC, CacheTTL: time.Minute, TimelineWorkers: 3})
	f.assessments.now = func() time.Time { return refNow }
	n := 0
	f.assessments.newID = func() string { n++; return fmt.Sprintf("ev-%d", n) }
	f.entries = NewEntryService(f.store, f.assessments, metrics.Nop{}, "memory", logger.Nop())
	return f
}

func steady(day int, ready float64) models.DailyEntry {
	return models.DailyEntry{
		Date:       fmt.Sprintf("2024-03-%02d", day),
		MReady:     models.Float(ready),
		OuraRec:    models.Float(ready + 2),
		WhoopRec:   models.Float(ready - 2),
		WhoopRhr:   models.Float(52),
		OuraRhr:    models.Float(50),
		Steps:      models.Float(8000),
		Fatigue:    models.Float(3),
		Joint:      models.Float(1),
		Resistance: "N",
	}
}

func seedDays(from, to int) []models.DailyEntry {
	var out []models.DailyEntry
	for d := from; d <= to; d++ {
		out = append(out, steady(d, 70+float64(d%3)))
	}
	return out
}

func TestNormalize(t *testing.T) {
	yes := true
	steps := 12000.0

	e := Normalize(&models.EntryRequest{Date: "2024-03-20", Steps: &steps, Resistance: "y"}, "2024-03-20")
	assert.True(t, e.MorningEntry, "today's entry defaults to morning")
	assert.Nil(t, e.Steps, "morning entry drops steps")
	assert.Equal(t, "Y", e.Resistance)

	e = Normalize(&models.EntryRequest{Date: "2024-03-19", Steps: &steps, Resistance: "N"}, "2024-03-20")
	assert.False(t, e.MorningEntry)
	require.NotNil(t, e.Steps)
	assert.Equal(t, 12000.0, *e.Steps)

	e = Normalize(&models.EntryRequest{Date: "2024-03-01", Steps: &steps, MorningEntry: &yes}, "2024-03-20")
	assert.True(t, e.MorningEntry)
	assert.Nil(t, e.Steps)
	assert.Equal(t, "N", e.Resistance)
}

func TestAssessmentService_Assess(t *testing.T) {
	ctx := context.Background()

	_, err := newFixture(t, nil).assessments.Assess(ctx, "")
	assert.ErrorIs(t, err, ErrNoEntries)

	f := newFixture(t, nil, seedDays(1, 10)...)
	latest, err := f.assessments.Assess(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", latest.Date)
	assert.Equal(t, models.ModeADT, latest.Mode)

	_, err = f.assessments.Assess(ctx, "2024-02-01")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	direct := assessment.NewEngine().Assess(steady(5, 72), seedDays(1, 10), models.DefaultSettings(), "2024-03-20")
	got, err := f.assessments.Assess(ctx, "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, direct.Rec, got.Rec)
	assert.Equal(t, direct.Confidence, got.Confidence)
}

func TestAssessmentService_CacheDroppedOnWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, seedDays(1, 10)...)

	before, err := f.assessments.Assess(ctx, "2024-03-10")
	require.NoError(t, err)

	fatigue := 9.0
	joint := 7.0
	req := &models.EntryRequest{
		Date: "2024-03-10", MReady: models.Float(30), OuraRec: models.Float(30), WhoopRec: models.Float(30),
		Fatigue: &fatigue, Joint: &joint, Resistance: "N",
	}
	_, err = f.entries.Upsert(ctx, req)
	require.NoError(t, err)

	after, err := f.assessments.Assess(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.NotEqual(t, before.Rec, after.Rec)
	assert.Equal(t, models.Red, after.Rec)
}

func TestAssessmentService_SettingsChangeKeysCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, seedDays(1, 10)...)

	a, err := f.assessments.Assess(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, models.ModeADT, a.Mode)

	require.NoError(t, f.settings.Save(ctx, models.AppSettings{BaselineDays: 7, Mode: models.ModeStandard}))
	a, err = f.assessments.Assess(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, models.ModeStandard, a.Mode)
}

func TestAssessmentService_Timeline(t *testing.T) {
	ctx := context.Background()
	seed := append(seedDays(1, 5), seedDays(8, 12)...)
	f := newFixture(t, nil, seed...)

	got, err := f.assessments.Timeline(ctx, "2024-03-03", "2024-03-10")
	require.NoError(t, err)
	dates := make([]string, len(got))
	for i, a := range got {
		dates[i] = a.Date
	}
	assert.Equal(t, []string{"2024-03-03", "2024-03-04", "2024-03-05", "2024-03-08", "2024-03-09", "2024-03-10"}, dates)

	for _, a := range got {
		single, err := f.assessments.Assess(ctx, a.Date)
		require.NoError(t, err)
		assert.Equal(t, single.Confidence, a.Confidence, a.Date)
		assert.Equal(t, single.CrashScore, a.CrashScore, a.Date)
	}

	_, err = f.assessments.Timeline(ctx, "2024-03-10", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = f.assessments.Timeline(ctx, "2020-01-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestAssessmentService_TimelineCanceled(t *testing.T) {
	f := newFixture(t, nil, seedDays(1, 12)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := f.assessments.Timeline(ctx, "2024-03-01", "2024-03-12")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestAssessmentService_Bundle(t *testing.T) {
	ctx := context.Background()

	text, err := newFixture(t, nil).assessments.Bundle(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "No entries yet.", text)

	text, err = newFixture(t, nil, seedDays(1, 3)...).assessments.Bundle(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, text, "ANALYSIS BUNDLE")
	assert.Contains(t, text, "2024-03-03")
}

func TestEntryService_UpsertPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, seedDays(1, 5)...)

	e, err := f.entries.Upsert(ctx, &models.EntryRequest{Date: "2024-03-06", MReady: models.Float(71), Resistance: "n"})
	require.NoError(t, err)
	assert.Equal(t, "N", e.Resistance)

	stored, err := f.store.Get(ctx, "2024-03-06")
	require.NoError(t, err)
	assert.Equal(t, 71.0, *stored.MReady)

	assert.Equal(t, []string{"2024-03-06"}, f.pub.dates())
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "ev-1", f.notifier.events[0].ID)
	assert.Equal(t, refNow, f.notifier.events[0].ComputedAt)
}

func TestEntryService_UpsertSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.pub.err = errors.New("broker down")

	_, err := f.entries.Upsert(context.Background(), &models.EntryRequest{Date: "2024-03-06", Resistance: "N"})
	require.NoError(t, err)
	_, err = f.store.Get(context.Background(), "2024-03-06")
	assert.NoError(t, err)
}

func TestEntryService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, seedDays(1, 6)...)

	got, err := f.entries.List(ctx, "2024-03-02", "2024-03-04")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = f.entries.List(ctx, "2024-03-05", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.entries.List(ctx, "2024-03-05", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	require.NoError(t, f.entries.Delete(ctx, "2024-03-06"))
	assert.ErrorIs(t, f.entries.Delete(ctx, "2024-03-06"), domrepo.ErrNotFound)
}

const importCSV = `Date,MorpheusReady,OuraRecovery,WhoopRecovery,Steps,Resistance,Notes
2024-03-01,70,72,68,9000,Y,first
2024-03-02,abc,72,68,9000,N,
2024-03-03,71,73,69,,N,third
`

func TestEntryService_ImportQueuesBackfill(t *testing.T) {
	ctx := context.Background()
	q := &recordingQueue{}
	f := newFixture(t, q, steady(1, 40))

	res, err := f.entries.Import(ctx, exchange.FormatCSV, strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.True(t, res.Queued)

	assert.Equal(t, BackfillJobType, q.msgType)
	assert.Equal(t, BackfillPayload{Dates: []string{"2024-03-01", "2024-03-03"}}, q.payload)
	assert.Empty(t, f.pub.dates(), "nothing published inline")

	e, err := f.store.Get(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 70.0, *e.MReady, "imported row wins")
	assert.Equal(t, "first", e.Notes)
}

func TestEntryService_ImportPublishesInlineWithoutQueue(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.entries.Import(context.Background(), exchange.FormatCSV, strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Equal(t, []string{"2024-03-01", "2024-03-03"}, f.pub.dates())
}

func TestEntryService_ImportFallsBackWhenEnqueueFails(t *testing.T) {
	f := newFixture(t, &recordingQueue{err: errors.New("redis down")})

	res, err := f.entries.Import(context.Background(), exchange.FormatCSV, strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Len(t, f.pub.dates(), 2)
}

func TestEntryService_ExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, seedDays(1, 3)...)

	var buf strings.Builder
	require.NoError(t, f.entries.Export(ctx, exchange.FormatJSON, &buf))

	res, err := exchange.Decode(exchange.FormatJSON, strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
}

func TestBackfillJob_Handle(t *testing.T) {
	f := newFixture(t, nil, seedDays(1, 4)...)
	job := NewBackfillJob(f.assessments)

	assert.Equal(t, BackfillJobType, job.Type())
	require.NoError(t, job.Handle(context.Background(), json.RawMessage(`{"dates":["2024-03-04","2024-03-02","2024-03-02","2023-01-01"]}`)))
	assert.Equal(t, []string{"2024-03-02", "2024-03-04"}, f.pub.dates())

	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`{"dates":`)))
}

func TestKafkaEntriesHandler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	h := NewKafkaEntriesHandler("trirecover.entries", f.entries, metrics.Nop{})
	assert.Equal(t, "trirecover.entries", h.Topic())

	err := h.Handle(ctx, []byte(`{not json`))
	assert.ErrorIs(t, err, kafka.ErrPermanent)

	err = h.Handle(ctx, []byte(`{"date":"2024-03-05","fatigue":42}`))
	assert.ErrorIs(t, err, kafka.ErrPermanent)

	require.NoError(t, h.Handle(ctx, []byte(`{"date":"2024-03-05","mReady":66,"steps":7000}`)))
	e, err := f.store.Get(ctx, "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, "N", e.Resistance, "resistance defaults to N")
	assert.Equal(t, 7000.0, *e.Steps)
}

type fakeSink struct{ events []models.AssessmentEvent }

func (s *fakeSink) Process(_ context.Context, ev models.AssessmentEvent) error {
	if ev.Date == "" {
		return errors.New("no date")
	}
	s.events = append(s.events, ev)
	return nil
}

func TestKafkaArchiveHandler(t *testing.T) {
	sink := &fakeSink{}
	h := NewKafkaArchiveHandler("trirecover.assessments", sink, metrics.Nop{})

	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`[]`)), kafka.ErrPermanent)
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{}`)), kafka.ErrPermanent)
	require.NoError(t, h.Handle(context.Background(), []byte(`{"date":"2024-03-01","rec":"Green","confidence":90}`)))
	require.Len(t, sink.events, 1)
	assert.Equal(t, models.Green, sink.events[0].Rec)
}

func TestArchiveService_Disabled(t *testing.T) {
	s := NewArchiveService(nil)
	assert.False(t, s.Enabled())
	_, err := s.History(context.Background(), "", "", 10)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

type fakeCloud struct {
	enabled bool
	remote  []models.DailyEntry
	pushed  []models.DailyEntry
	err     error
}

func (c *fakeCloud) Pull(context.Context) ([]models.DailyEntry, error) { return c.remote, c.err }
func (c *fakeCloud) Push(_ context.Context, entries []models.DailyEntry) error {
	c.pushed = entries
	return c.err
}
func (c *fakeCloud) Enabled() bool { return c.enabled }

func TestSyncService(t *testing.T) {
	ctx := context.Background()

	disabled := NewSyncService(&fakeCloud{}, nil, nil, metrics.Nop{}, "memory", logger.Nop())
	_, err := disabled.Pull(ctx)
	assert.ErrorIs(t, err, ErrSyncDisabled)

	f := newFixture(t, nil, steady(1, 50), steady(2, 60))
	cloudDay := steady(2, 90)
	cloudDay.Resistance = "y"
	cloud := &fakeCloud{enabled: true, remote: []models.DailyEntry{cloudDay, steady(3, 80)}}
	s := NewSyncService(cloud, f.store, f.assessments, metrics.Nop{}, "memory", logger.Nop())

	res, err := s.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Direction: "pull", Entries: 2, Total: 3}, res)

	e, err := f.store.Get(ctx, "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, 90.0, *e.MReady, "cloud wins on collision")
	assert.Equal(t, "Y", e.Resistance)
	assert.Equal(t, []string{"2024-03-02", "2024-03-03"}, f.pub.dates())

	res, err = s.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entries)
	assert.Len(t, cloud.pushed, 3)

	cloud.err = errors.New("502")
	_, err = s.Pull(ctx)
	assert.Error(t, err)
}

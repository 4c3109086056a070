package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigdesk/assignq/internal/assignment/domain"
	"github.com/gigdesk/assignq/internal/notify"
)

// fakeStore is an in-memory Store with the same conditional-update
// semantics as the SQL implementation, so lifecycle races can be
// exercised without a database.
type fakeStore struct {
	mu          sync.Mutex
	entries     map[string]*domain.QueueEntry
	events      []domain.AssignmentEvent
	responses   []domain.Response
	generations map[domain.TargetRef]*generationRow
}

type generationRow struct {
	generation int64
	exhausted  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:     make(map[string]*domain.QueueEntry),
		generations: make(map[domain.TargetRef]*generationRow),
	}
}

func (s *fakeStore) ReplaceQueue(_ context.Context, ref domain.TargetRef, entries []domain.QueueEntry, event domain.AssignmentEvent) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.generations[ref]
	if row == nil {
		row = &generationRow{}
		s.generations[ref] = row
	}
	row.generation++
	row.exhausted = len(entries) == 0
	regenerated := row.generation > 1

	for _, e := range s.entries {
		if e.Ref() == ref && e.Generation < row.generation && e.Live() {
			e.Status = domain.EntryStatusExpired
			e.Metadata[domain.MetaKeyOutcome] = domain.OutcomeSuperseded
		}
	}

	for i := range entries {
		e := entries[i]
		e.Generation = row.generation
		s.entries[e.ID] = &e
	}

	if event.EventType == "" {
		event.EventType = domain.EventQueueGenerated
		if regenerated {
			event.EventType = domain.EventQueueRegenerated
		}
	}
	s.events = append(s.events, event)

	return row.generation, regenerated, nil
}

func (s *fakeStore) RecordEvent(_ context.Context, event domain.AssignmentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeStore) GetEntry(_ context.Context, entryID string) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *fakeStore) ListQueue(_ context.Context, ref domain.TargetRef) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.generations[ref]
	if row == nil {
		return nil, nil
	}

	var out []domain.QueueEntry
	for _, e := range s.entries {
		if e.Ref() == ref && e.Generation == row.generation {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriorityBucket < out[j].PriorityBucket })
	return out, nil
}

func (s *fakeStore) ListEvents(_ context.Context, ref domain.TargetRef, limit int) ([]domain.AssignmentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	var out []domain.AssignmentEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.events[i]
		if e.TargetType == ref.Type && e.TargetID == ref.ID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) ResolveEntry(_ context.Context, entryID string, response domain.Response, status string, now time.Time) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok || e.Status != domain.EntryStatusNotified {
		return nil, domain.ErrStaleOffer
	}

	e.Status = status
	e.ResolvedAt = &now
	e.UpdatedAt = now
	s.responses = append(s.responses, response)

	if status == domain.ResponseStatusAccepted {
		for _, sib := range s.entries {
			if sib.ID != e.ID && sib.Ref() == e.Ref() && sib.Live() {
				sib.Status = domain.EntryStatusExpired
				sib.ResolvedAt = &now
				sib.Metadata[domain.MetaKeyOutcome] = domain.OutcomeSuperseded
				sib.Metadata[domain.MetaKeySupersededBy] = e.ID
			}
		}
	}

	copied := *e
	return &copied, nil
}

func (s *fakeStore) PromoteNextPending(_ context.Context, ref domain.TargetRef, generation int64, now time.Time, expiresIn time.Duration) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *domain.QueueEntry
	for _, e := range s.entries {
		if e.Ref() != ref || e.Generation != generation || e.Status != domain.EntryStatusPending {
			continue
		}
		if next == nil || e.PriorityBucket < next.PriorityBucket {
			next = e
		}
	}
	if next == nil {
		return nil, nil
	}

	notifiedAt := now
	expiresAt := now.Add(expiresIn)
	next.Status = domain.EntryStatusNotified
	next.NotifiedAt = &notifiedAt
	next.ExpiresAt = &expiresAt
	next.UpdatedAt = now

	copied := *next
	return &copied, nil
}

func (s *fakeStore) ExpireDue(_ context.Context, now time.Time) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []domain.QueueEntry
	for _, e := range s.entries {
		if e.Status == domain.EntryStatusNotified && e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
			e.Status = domain.EntryStatusExpired
			e.ResolvedAt = &now
			e.UpdatedAt = now
			expired = append(expired, *e)
		}
	}
	return expired, nil
}

func (s *fakeStore) MarkExhausted(_ context.Context, ref domain.TargetRef, generation int64, event domain.AssignmentEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.generations[ref]
	if row == nil || row.generation != generation || row.exhausted {
		return false, nil
	}
	row.exhausted = true
	s.events = append(s.events, event)
	return true, nil
}

func (s *fakeStore) eventTypes(ref domain.TargetRef) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var types []string
	for _, e := range s.events {
		if e.TargetType == ref.Type && e.TargetID == ref.ID {
			types = append(types, e.EventType)
		}
	}
	return types
}

type fakeDirectory struct {
	stats []domain.CandidateStats
	err   error
}

func (d *fakeDirectory) CandidateStats(context.Context, domain.TargetRef) ([]domain.CandidateStats, error) {
	return d.stats, d.err
}

type fakeTargets struct {
	settings    domain.Settings
	settingsErr error
	targetErr   error
}

func (t *fakeTargets) GetTarget(_ context.Context, ref domain.TargetRef) (*domain.Target, error) {
	if t.targetErr != nil {
		return nil, t.targetErr
	}
	return &domain.Target{Ref: ref, Value: decimal.NewFromInt(1500), Currency: "USD"}, nil
}

func (t *fakeTargets) GetSettings(context.Context, domain.TargetRef) (domain.Settings, error) {
	return t.settings, t.settingsErr
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []notify.OfferNotification
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, n notify.OfferNotification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return d.err
}

func (d *fakeDispatcher) sentTo() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.sent))
	for _, n := range d.sent {
		ids = append(ids, n.FreelancerID)
	}
	return ids
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type fixture struct {
	engine     *Engine
	store      *fakeStore
	directory  *fakeDirectory
	targets    *fakeTargets
	dispatcher *fakeDispatcher
	clock      *testClock
	ref        domain.TargetRef
}

func rating(v float64) *float64 { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	directory := &fakeDirectory{stats: []domain.CandidateStats{
		{FreelancerID: "fl-a", Rating: rating(0.9), RecentAssignmentCount: 1},
		{FreelancerID: "fl-b", Rating: rating(0.7), RecentAssignmentCount: 1},
		{FreelancerID: "fl-c", Rating: rating(0.5), RecentAssignmentCount: 1},
	}}
	targets := &fakeTargets{settings: domain.Settings{
		Limit:            5,
		ExpiresInMinutes: 30,
		Weights:          domain.Weights{Rating: 1},
	}}
	dispatcher := &fakeDispatcher{}
	clock := &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	eng := New(&Config{
		Store:           store,
		Directory:       directory,
		Targets:         targets,
		Dispatcher:      dispatcher,
		Logger:          slog.New(slog.DiscardHandler),
		DefaultOfferTTL: 45 * time.Minute,
	})
	eng.now = clock.Now

	return &fixture{
		engine:     eng,
		store:      store,
		directory:  directory,
		targets:    targets,
		dispatcher: dispatcher,
		clock:      clock,
		ref:        domain.TargetRef{Type: domain.TargetTypeProject, ID: "proj-1"},
	}
}

func TestGenerate_FirstGeneration(t *testing.T) {
	fx := newFixture(t)

	summary, err := fx.engine.Generate(context.Background(), fx.ref, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Generation)
	assert.Equal(t, domain.EventQueueGenerated, summary.EventType)
	assert.Equal(t, 3, summary.QueueSize)
	assert.Equal(t, 1, summary.Notified)
	assert.Empty(t, summary.Overflow)

	queue, err := fx.engine.Queue(context.Background(), fx.ref)
	require.NoError(t, err)
	require.Len(t, queue, 3)

	active := queue[0]
	assert.Equal(t, "fl-a", active.FreelancerID)
	assert.Equal(t, 1, active.PriorityBucket)
	assert.Equal(t, domain.EntryStatusNotified, active.Status)
	require.NotNil(t, active.ExpiresAt)
	assert.Equal(t, fx.clock.Now().Add(30*time.Minute), *active.ExpiresAt)
	assert.Contains(t, active.Metadata, domain.MetaKeyScoreBreakdown)

	for _, e := range queue[1:] {
		assert.Equal(t, domain.EntryStatusPending, e.Status)
		assert.Nil(t, e.ExpiresAt)
	}

	// Only the active offer is dispatched.
	assert.Equal(t, []string{"fl-a"}, fx.dispatcher.sentTo())
	assert.Equal(t, []string{domain.EventQueueGenerated}, fx.store.eventTypes(fx.ref))
}

func TestGenerate_RegenerateSupersedesPriorGeneration(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)

	second, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), second.Generation)
	assert.Equal(t, domain.EventQueueRegenerated, second.EventType)

	queue, err := fx.engine.Queue(ctx, fx.ref)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	for _, e := range queue {
		assert.Equal(t, int64(2), e.Generation)
		assert.Equal(t, first.Generation+1, e.Generation)
	}

	for _, e := range fx.store.entries {
		if e.Generation == 1 {
			assert.Equal(t, domain.EntryStatusExpired, e.Status)
			assert.Equal(t, domain.OutcomeSuperseded, e.Metadata[domain.MetaKeyOutcome])
		}
	}

	assert.Equal(t,
		[]string{domain.EventQueueGenerated, domain.EventQueueRegenerated},
		fx.store.eventTypes(fx.ref),
	)
}

func TestGenerate_EmptyPoolRecordsExhausted(t *testing.T) {
	fx := newFixture(t)
	fx.directory.stats = nil

	summary, err := fx.engine.Generate(context.Background(), fx.ref, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.EventQueueExhausted, summary.EventType)
	assert.Zero(t, summary.QueueSize)
	assert.Zero(t, summary.Notified)

	queue, err := fx.engine.Queue(context.Background(), fx.ref)
	require.NoError(t, err)
	assert.Empty(t, queue)
	assert.Empty(t, fx.dispatcher.sentTo())
	assert.Equal(t, []string{domain.EventQueueExhausted}, fx.store.eventTypes(fx.ref))
}

func TestGenerate_UpstreamFailureRecordsFailedEvent(t *testing.T) {
	fx := newFixture(t)
	fx.directory.err = errors.New("directory unavailable")

	summary, err := fx.engine.Generate(context.Background(), fx.ref, nil)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, domain.IsUpstream(err))

	// The failure is audited; the queue itself is untouched.
	assert.Equal(t, []string{domain.EventQueueFailed}, fx.store.eventTypes(fx.ref))
	assert.Empty(t, fx.store.entries)
}

func TestGenerate_SettingsFailureAbortsBeforeAnyFetch(t *testing.T) {
	fx := newFixture(t)
	fx.targets.settingsErr = errors.New("settings table gone")

	_, err := fx.engine.Generate(context.Background(), fx.ref, nil)
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))

	events, err := fx.engine.Events(context.Background(), fx.ref, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventQueueFailed, events[0].EventType)
	assert.Equal(t, "settings", events[0].Payload["operation"])
}

func TestGenerate_DispatchFailureDoesNotFailGeneration(t *testing.T) {
	fx := newFixture(t)
	fx.dispatcher.err = errors.New("broker down")

	summary, err := fx.engine.Generate(context.Background(), fx.ref, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Notified)
}

func TestGenerate_OverflowBeyondLimit(t *testing.T) {
	fx := newFixture(t)
	fx.targets.settings.Limit = 2

	summary, err := fx.engine.Generate(context.Background(), fx.ref, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.QueueSize)
	assert.Equal(t, []string{"fl-c"}, summary.Overflow)

	queue, err := fx.engine.Queue(context.Background(), fx.ref)
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}

func activeEntry(t *testing.T, fx *fixture) domain.QueueEntry {
	t.Helper()
	queue, err := fx.engine.Queue(context.Background(), fx.ref)
	require.NoError(t, err)
	for _, e := range queue {
		if e.Status == domain.EntryStatusNotified {
			return e
		}
	}
	t.Fatal("no notified entry in queue")
	return domain.QueueEntry{}
}

func TestRespond_AcceptSupersedesSiblings(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)
	active := activeEntry(t, fx)

	fx.clock.Advance(5 * time.Minute)

	resolved, err := fx.engine.Respond(ctx, active.ID, RespondInput{
		Status:  domain.ResponseStatusAccepted,
		ActorID: "fl-a",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusAccepted, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	require.Len(t, fx.store.responses, 1)
	resp := fx.store.responses[0]
	assert.Equal(t, active.ID, resp.QueueEntryID)
	assert.InDelta(t, 300.0, resp.Metadata[domain.MetaKeyResponseLatencyS], 1e-9)

	queue, err := fx.engine.Queue(ctx, fx.ref)
	require.NoError(t, err)
	for _, e := range queue {
		if e.ID == active.ID {
			continue
		}
		assert.Equal(t, domain.EntryStatusExpired, e.Status)
		assert.Equal(t, domain.OutcomeSuperseded, e.Metadata[domain.MetaKeyOutcome])
		assert.Equal(t, active.ID, e.Metadata[domain.MetaKeySupersededBy])
	}

	// Accepting ends the cascade: nobody else is notified.
	assert.Equal(t, []string{"fl-a"}, fx.dispatcher.sentTo())
}

func TestRespond_DeclineCascadesToNextBucket(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)
	active := activeEntry(t, fx)

	resolved, err := fx.engine.Respond(ctx, active.ID, RespondInput{
		Status:     domain.ResponseStatusDeclined,
		ActorID:    "fl-a",
		ReasonCode: "unavailable",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusDeclined, resolved.Status)

	next := activeEntry(t, fx)
	assert.Equal(t, "fl-b", next.FreelancerID)
	assert.Equal(t, 2, next.PriorityBucket)
	require.NotNil(t, next.ExpiresAt)
	assert.Equal(t, fx.clock.Now().Add(30*time.Minute), *next.ExpiresAt)

	assert.Equal(t, []string{"fl-a", "fl-b"}, fx.dispatcher.sentTo())
}

func TestRespond_PendingEntryIsStale(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)

	queue, err := fx.engine.Queue(ctx, fx.ref)
	require.NoError(t, err)
	pending := queue[1]
	require.Equal(t, domain.EntryStatusPending, pending.Status)

	_, err = fx.engine.Respond(ctx, pending.ID, RespondInput{
		Status:  domain.ResponseStatusAccepted,
		ActorID: pending.FreelancerID,
	})
	assert.ErrorIs(t, err, domain.ErrStaleOffer)
}

func TestRespond_DoubleResolveIsStale(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)
	active := activeEntry(t, fx)

	_, err = fx.engine.Respond(ctx, active.ID, RespondInput{Status: domain.ResponseStatusAccepted, ActorID: "fl-a"})
	require.NoError(t, err)

	_, err = fx.engine.Respond(ctx, active.ID, RespondInput{Status: domain.ResponseStatusDeclined, ActorID: "fl-a"})
	assert.ErrorIs(t, err, domain.ErrStaleOffer)
}

func TestRespond_UnknownEntry(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.engine.Respond(context.Background(), "16fd2706-8baf-433b-82eb-8c7fada847da", RespondInput{
		Status:  domain.ResponseStatusAccepted,
		ActorID: "fl-x",
	})
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestRespond_InvalidStatus(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)
	active := activeEntry(t, fx)

	// A bad status is a caller mistake, not a lost race: the error is
	// distinct from ErrStaleOffer and nothing is written.
	_, err = fx.engine.Respond(ctx, active.ID, RespondInput{Status: "maybe", ActorID: "fl-a"})
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	assert.NotErrorIs(t, err, domain.ErrStaleOffer)
	assert.Empty(t, fx.store.responses)
	assert.Equal(t, domain.EntryStatusNotified, activeEntry(t, fx).Status)
}

func TestRespond_ConcurrentAcceptsExactlyOneWins(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)
	active := activeEntry(t, fx)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.engine.Respond(ctx, active.ID, RespondInput{
				Status:  domain.ResponseStatusAccepted,
				ActorID: "fl-a",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, stale int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrStaleOffer):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, stale)
	assert.Len(t, fx.store.responses, 1)
}

func TestReapExpired_PromotesThenExhausts(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)

	// First sweep: fl-a's offer lapses, fl-b takes over.
	now := fx.clock.Advance(31 * time.Minute)
	summary, err := fx.engine.ReapExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, &ReapSummary{Expired: 1, Promoted: 1}, summary)
	assert.Equal(t, "fl-b", activeEntry(t, fx).FreelancerID)

	// Second sweep: fl-c is the last fallback.
	now = fx.clock.Advance(31 * time.Minute)
	summary, err = fx.engine.ReapExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, &ReapSummary{Expired: 1, Promoted: 1}, summary)
	assert.Equal(t, "fl-c", activeEntry(t, fx).FreelancerID)

	// Third sweep drains the queue and marks the generation exhausted.
	now = fx.clock.Advance(31 * time.Minute)
	summary, err = fx.engine.ReapExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, &ReapSummary{Expired: 1, Exhausted: 1}, summary)

	assert.Equal(t,
		[]string{domain.EventQueueGenerated, domain.EventQueueExhausted},
		fx.store.eventTypes(fx.ref),
	)

	// A fourth sweep finds nothing and must not duplicate the event.
	summary, err = fx.engine.ReapExpired(ctx, fx.clock.Advance(31*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, &ReapSummary{}, summary)
	assert.Equal(t,
		[]string{domain.EventQueueGenerated, domain.EventQueueExhausted},
		fx.store.eventTypes(fx.ref),
	)
}

func TestReapExpired_NothingDue(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)

	summary, err := fx.engine.ReapExpired(ctx, fx.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, &ReapSummary{}, summary)
	assert.Equal(t, "fl-a", activeEntry(t, fx).FreelancerID)
}

func TestCascade_SettingsFailureFallsBackToDefaultTTL(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)
	active := activeEntry(t, fx)

	// Settings become unreachable after generation; the cascade still
	// promotes, backed by the engine default.
	fx.targets.settingsErr = errors.New("settings unavailable")

	_, err = fx.engine.Respond(ctx, active.ID, RespondInput{
		Status:  domain.ResponseStatusDeclined,
		ActorID: "fl-a",
	})
	require.NoError(t, err)

	next := activeEntry(t, fx)
	assert.Equal(t, "fl-b", next.FreelancerID)
	require.NotNil(t, next.ExpiresAt)
	assert.Equal(t, fx.clock.Now().Add(45*time.Minute), *next.ExpiresAt)
}

func TestReapExpired_DeclinedLastEntryExhaustsViaRespond(t *testing.T) {
	fx := newFixture(t)
	fx.directory.stats = fx.directory.stats[:1]
	ctx := context.Background()

	_, err := fx.engine.Generate(ctx, fx.ref, nil)
	require.NoError(t, err)
	active := activeEntry(t, fx)

	_, err = fx.engine.Respond(ctx, active.ID, RespondInput{
		Status:  domain.ResponseStatusDeclined,
		ActorID: "fl-a",
	})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{domain.EventQueueGenerated, domain.EventQueueExhausted},
		fx.store.eventTypes(fx.ref),
	)
}

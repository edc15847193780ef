// Package session owns the client-side state of one workout day: the
// exercise list, the aggregate elapsed time and the 1-second tick that
// advances the display while an exercise is running.
//
// Reconciliation rule: displayed elapsed time is always derived from the
// server-confirmed start instant (accumulated + now - startTime), never
// incremented tick by tick. A tick therefore only re-reads the clock; it
// cannot double-count, and a page reload lands on the same value.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"homefit/internal/api"
	"homefit/internal/models"
	"homefit/internal/workday"
)

// ErrBusy rejects a start while another exercise is active. The caller
// surfaces it; nothing is sent to the server.
var ErrBusy = errors.New("another exercise is already active")

const tickInterval = time.Second

// StartStopper is the slice of the API client the session mutates through.
type StartStopper interface {
	StartExercise(ctx context.Context, id int64) (time.Time, error)
	StopExercise(ctx context.Context, id int64) error
	AddExercise(ctx context.Context, name string) error
	DeleteExercise(ctx context.Context, id int64) error
}

// DayLoader is the cached read side, satisfied by the query cache.
type DayLoader interface {
	Day(ctx context.Context, dateKey string) (models.DayAggregate, error)
	Invalidate(dateKey string)
}

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	DateKey   string
	Exercises []models.Exercise
	Elapsed   []int64 // displayed elapsed ms, index-aligned with Exercises
	TotalMs   int64
	ActiveID  int64 // 0 when idle
}

type Session struct {
	apiClient StartStopper
	days      DayLoader
	resetHour int
	now       func() time.Time
	onChange  func(Snapshot)

	mu        sync.Mutex
	dateKey   string
	exercises []models.Exercise
	starting  bool
}

type Option func(*Session)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithOnChange registers a callback invoked with a fresh snapshot after
// every tick and every state mutation.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) { s.onChange = fn }
}

func New(apiClient StartStopper, days DayLoader, resetHour int, opts ...Option) *Session {
	s := &Session{
		apiClient: apiClient,
		days:      days,
		resetHour: resetHour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SwitchDay buckets t into its workout day and loads that day's state,
// replacing everything held for the previous day. Ticking state never
// leaks across a day switch.
func (s *Session) SwitchDay(ctx context.Context, t time.Time) error {
	return s.LoadDay(ctx, workday.Key(workday.Adjust(t, s.resetHour)))
}

// LoadDay fetches the authoritative day aggregate and replaces local state
// in one step.
func (s *Session) LoadDay(ctx context.Context, dateKey string) error {
	agg, err := s.days.Day(ctx, dateKey)
	if err != nil {
		return fmt.Errorf("load day %s: %w", dateKey, err)
	}

	s.mu.Lock()
	s.dateKey = dateKey
	s.exercises = agg.Exercises
	s.mu.Unlock()

	s.notify()
	return nil
}

// Start activates an exercise. Precondition: nothing else is active; a
// violation returns ErrBusy without touching the network. The exercise is
// marked active only once the server confirms, with the server's start
// instant. A conflict (another device won the race) discards local state
// and reloads the authoritative list.
func (s *Session) Start(ctx context.Context, id int64) error {
	s.mu.Lock()
	if s.starting || s.activeLocked() != nil {
		s.mu.Unlock()
		return ErrBusy
	}
	s.starting = true
	dateKey := s.dateKey
	s.mu.Unlock()

	startAt, err := s.apiClient.StartExercise(ctx, id)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, api.ErrConflict) {
			// Another session already runs an exercise; our view is stale.
			s.resync(ctx, dateKey)
		}
		return err
	}
	if s.dateKey != dateKey {
		// Day switched while the request was in flight; the new day's
		// state is authoritative and must not be patched.
		s.mu.Unlock()
		return nil
	}
	for i := range s.exercises {
		if s.exercises[i].ID == id {
			t := startAt
			s.exercises[i].IsActive = true
			s.exercises[i].StartTime = &t
		}
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Stop deactivates the active exercise. The local fold is optimistic: every
// entry is marked inactive immediately and the running span is folded into
// the active one's accumulated time. On any request failure the optimistic
// state is thrown away and the server copy reloaded.
func (s *Session) Stop(ctx context.Context) error {
	now := s.now()

	s.mu.Lock()
	active := s.activeLocked()
	if active == nil {
		s.mu.Unlock()
		return nil
	}
	activeID := active.ID
	dateKey := s.dateKey
	for i := range s.exercises {
		if s.exercises[i].IsActive {
			s.exercises[i].AccumulatedMs = s.exercises[i].ElapsedMs(now)
		}
		// Defensively clear every entry, not just the one we found.
		s.exercises[i].IsActive = false
		s.exercises[i].StartTime = nil
	}
	s.mu.Unlock()
	s.notify()

	if err := s.apiClient.StopExercise(ctx, activeID); err != nil {
		s.resync(ctx, dateKey)
		return err
	}

	s.days.Invalidate(dateKey)
	return nil
}

// Add creates a new exercise on the current day and refreshes the list.
func (s *Session) Add(ctx context.Context, name string) error {
	if err := s.apiClient.AddExercise(ctx, name); err != nil {
		return err
	}
	s.mu.Lock()
	dateKey := s.dateKey
	s.mu.Unlock()
	s.resync(ctx, dateKey)
	return nil
}

// Delete removes an exercise and refreshes the list.
func (s *Session) Delete(ctx context.Context, id int64) error {
	if err := s.apiClient.DeleteExercise(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	dateKey := s.dateKey
	s.mu.Unlock()
	s.resync(ctx, dateKey)
	return nil
}

func (s *Session) resync(ctx context.Context, dateKey string) {
	s.days.Invalidate(dateKey)
	// Best effort: a failed reload keeps the stale view; the next tick or
	// user action retries the read path.
	_ = s.LoadDay(ctx, dateKey)
}

// Snapshot derives the current display state. Elapsed values are computed
// from the clock at call time, which is the only place they exist.
func (s *Session) Snapshot() Snapshot {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		DateKey:   s.dateKey,
		Exercises: append([]models.Exercise(nil), s.exercises...),
		Elapsed:   make([]int64, len(s.exercises)),
	}
	for i, e := range s.exercises {
		ms := e.ElapsedMs(now)
		snap.Elapsed[i] = ms
		snap.TotalMs += ms
		if e.IsActive {
			snap.ActiveID = e.ID
		}
	}
	return snap
}

// Total is the aggregate displayed elapsed time over the day's list.
func (s *Session) Total() int64 {
	return s.Snapshot().TotalMs
}

func (s *Session) activeLocked() *models.Exercise {
	for i := range s.exercises {
		if s.exercises[i].IsActive {
			return &s.exercises[i]
		}
	}
	return nil
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}

// Run drives the 1-second tick until ctx is cancelled. Each firing is one
// discrete snapshot pushed to the onChange callback; the ticker itself
// never mutates session state.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.notify()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

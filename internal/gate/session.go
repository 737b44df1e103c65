package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Snapshot is the serialisable form of a visitor's gate, kept in the web
// session between requests.
type Snapshot struct {
	Phase     Phase     `json:"phase"`
	Remaining int       `json:"remaining"`
	Duration  int       `json:"duration"`
	LastTick  time.Time `json:"lastTick"`
	Query     string    `json:"query"`
}

// Encode returns the snapshot as a JSON string.
func (s Snapshot) Encode() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// DecodeSnapshot parses and sanity-checks an encoded snapshot.
func DecodeSnapshot(raw string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode gate snapshot: %w", err)
	}
	if _, ok := phaseNames[s.Phase]; !ok {
		return Snapshot{}, fmt.Errorf("decode gate snapshot: unknown phase %d", s.Phase)
	}
	if s.Duration < 1 || s.Remaining < 0 || s.Remaining > s.Duration {
		return Snapshot{}, fmt.Errorf("decode gate snapshot: remaining %d outside [0,%d]", s.Remaining, s.Duration)
	}
	return s, nil
}

// Session hosts a Controller across stateless requests: it remembers when
// the countdown last ticked and the query the visitor arrived with, and
// replays whole elapsed intervals as ticks.
type Session struct {
	c        *Controller
	interval time.Duration
	lastTick time.Time
	query    url.Values
}

// NewSession starts a fresh gate at now for a visitor arriving with query.
func NewSession(resolver Resolver, interval time.Duration, now time.Time, query url.Values, opts ...Option) *Session {
	return &Session{
		c:        New(resolver, opts...),
		interval: interval,
		lastTick: now,
		query:    query,
	}
}

// RestoreSession rebuilds a Session from a snapshot.
func RestoreSession(resolver Resolver, interval time.Duration, snap Snapshot, opts ...Option) (*Session, error) {
	query, err := url.ParseQuery(snap.Query)
	if err != nil {
		return nil, fmt.Errorf("restore gate query: %w", err)
	}
	c := New(resolver, append(opts, WithDuration(snap.Duration))...)
	c.phase = snap.Phase
	c.remaining = snap.Remaining
	return &Session{c: c, interval: interval, lastTick: snap.LastTick, query: query}, nil
}

// Controller exposes the hosted state machine.
func (s *Session) Controller() *Controller { return s.c }

// State returns the controller state.
func (s *Session) State() State { return s.c.State() }

// Query returns the query captured when the gate started.
func (s *Session) Query() url.Values { return s.query }

// CatchUp applies one tick per whole interval elapsed since the last tick
// and returns how many were applied.
func (s *Session) CatchUp(now time.Time) int {
	if !s.c.State().Phase.Running() {
		return 0
	}
	elapsed := now.Sub(s.lastTick)
	if elapsed < s.interval {
		return 0
	}
	n := int(elapsed / s.interval)
	applied := 0
	for i := 0; i < n && s.c.State().Phase.Running(); i++ {
		s.c.Tick()
		applied++
	}
	s.lastTick = s.lastTick.Add(time.Duration(n) * s.interval)
	return applied
}

// Advance catches up to now and then advances. The new countdown starts at now.
func (s *Session) Advance(now time.Time) bool {
	s.CatchUp(now)
	if !s.c.Advance() {
		return false
	}
	s.lastTick = now
	return true
}

// Claim catches up to now and claims. query overrides the captured query
// only when it carries a ref.
func (s *Session) Claim(ctx context.Context, now time.Time, query url.Values) (string, bool) {
	s.CatchUp(now)
	if query.Get("ref") == "" {
		query = s.query
	}
	return s.c.Claim(ctx, query)
}

// Snapshot captures the session for storage.
func (s *Session) Snapshot() Snapshot {
	st := s.c.State()
	return Snapshot{
		Phase:     st.Phase,
		Remaining: st.Remaining,
		Duration:  st.Duration,
		LastTick:  s.lastTick,
		Query:     s.query.Encode(),
	}
}

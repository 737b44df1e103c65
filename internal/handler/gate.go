package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/joestump/joe-gate/internal/auth"
	"github.com/joestump/joe-gate/internal/gate"
	"github.com/joestump/joe-gate/internal/metrics"
)

// SessionGateKey holds the visitor's encoded gate.Snapshot.
const SessionGateKey = "gate"

// GateOptions configures the countdowns served to visitors.
type GateOptions struct {
	Duration int           // ticks per countdown
	Interval time.Duration // wall time per tick
}

// GateHandler serves the landing page and drives one gate per visitor
// session. Every request restores the gate from the session, replays the
// intervals that elapsed since it was saved, acts, and saves it again.
type GateHandler struct {
	sessions *scs.SessionManager
	flag     auth.SessionStore
	resolver gate.Resolver
	opts     GateOptions
	clock    clockwork.Clock
}

// NewGateHandler creates a new GateHandler.
func NewGateHandler(sm *scs.SessionManager, flag auth.SessionStore, resolver gate.Resolver, opts GateOptions, clock clockwork.Clock) *GateHandler {
	return &GateHandler{sessions: sm, flag: flag, resolver: resolver, opts: opts, clock: clock}
}

// GateView is the gate state as rendered and as returned to scripts.
type GateView struct {
	Phase             string `json:"phase"`
	Step              int    `json:"step"`
	Remaining         int    `json:"remaining"`
	Duration          int    `json:"duration"`
	ContinueAvailable bool   `json:"continueAvailable"`
	ClaimAvailable    bool   `json:"claimAvailable"`
	LeaveGuarded      bool   `json:"leaveGuarded"`
	IntervalMS        int64  `json:"intervalMs"`
}

// GatePage is the template data for the landing page.
type GatePage struct {
	BasePage
	Gate GateView
}

// Index serves GET / and every unmatched GET path.
func (h *GateHandler) Index(w http.ResponseWriter, r *http.Request) {
	s := h.load(r)
	h.save(r, s)
	w.Header().Set("Cache-Control", "no-store")
	render(w, "landing.html", GatePage{
		BasePage: BasePage{Admin: h.flag.IsAdmin(r.Context())},
		Gate:     h.view(s),
	})
}

// State serves GET /gate: the panel fragment for the page script, JSON otherwise.
func (h *GateHandler) State(w http.ResponseWriter, r *http.Request) {
	s := h.load(r)
	h.save(r, s)
	h.respond(w, r, s)
}

// Advance serves POST /gate/advance. Outside Phase1Complete nothing changes.
func (h *GateHandler) Advance(w http.ResponseWriter, r *http.Request) {
	s := h.load(r)
	if s.Advance(h.clock.Now()) {
		metrics.GateTransitionsTotal.WithLabelValues(gate.Phase2Running.String()).Inc()
	}
	h.save(r, s)
	h.respond(w, r, s)
}

// Claim serves POST /gate/claim. Once phase 2 is complete it resolves the
// destination and sends the visitor there; earlier it changes nothing.
func (h *GateHandler) Claim(w http.ResponseWriter, r *http.Request) {
	s := h.load(r)
	target, ok := s.Claim(r.Context(), h.clock.Now(), r.URL.Query())
	if !ok {
		h.save(r, s)
		h.respond(w, r, s)
		return
	}

	// The next visit starts a new gate.
	h.sessions.Remove(r.Context(), SessionGateKey)
	metrics.GateTransitionsTotal.WithLabelValues(gate.Redirected.String()).Inc()

	switch {
	case isHTMX(r):
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
	case wantsJSON(r):
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"url": target})
	default:
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func (h *GateHandler) respond(w http.ResponseWriter, r *http.Request, s *gate.Session) {
	switch {
	case isHTMX(r):
		renderFragment(w, "gate_panel", h.view(s))
	case wantsJSON(r):
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.view(s))
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// load restores the visitor's gate and catches it up to now. A missing,
// unreadable or finished gate is replaced by a new one capturing the
// request's query.
func (h *GateHandler) load(r *http.Request) *gate.Session {
	logger := hlog.FromRequest(r)
	now := h.clock.Now()

	if raw := h.sessions.GetString(r.Context(), SessionGateKey); raw != "" {
		s, err := h.restore(raw, logger)
		if err == nil && s != nil {
			s.CatchUp(now)
			return s
		}
		if err != nil {
			logger.Warn().Err(err).Msg("discarding gate snapshot")
		}
	}

	metrics.GatesStartedTotal.Inc()
	return gate.NewSession(h.resolver, h.opts.Interval, now, r.URL.Query(), h.gateOptions(logger)...)
}

// restore returns nil, nil for a snapshot of a finished gate.
func (h *GateHandler) restore(raw string, logger *zerolog.Logger) (*gate.Session, error) {
	snap, err := gate.DecodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	if snap.Phase == gate.Redirected {
		return nil, nil
	}
	return gate.RestoreSession(h.resolver, h.opts.Interval, snap, h.gateOptions(logger)...)
}

func (h *GateHandler) save(r *http.Request, s *gate.Session) {
	h.sessions.Put(r.Context(), SessionGateKey, s.Snapshot().Encode())
}

func (h *GateHandler) gateOptions(logger *zerolog.Logger) []gate.Option {
	return []gate.Option{
		gate.WithDuration(h.opts.Duration),
		gate.WithHooks(gate.Hooks{
			PhaseComplete: func(p gate.Phase) {
				metrics.GateTransitionsTotal.WithLabelValues(p.String()).Inc()
			},
			Navigate: func(target string) {
				logger.Info().Str("target", target).Msg("visitor redirected")
			},
		}),
	}
}

func (h *GateHandler) view(s *gate.Session) GateView {
	st := s.State()
	return GateView{
		Phase:             st.Phase.String(),
		Step:              st.Phase.Step(),
		Remaining:         st.Remaining,
		Duration:          st.Duration,
		ContinueAvailable: st.ContinueAvailable(),
		ClaimAvailable:    st.ClaimAvailable(),
		LeaveGuarded:      s.Controller().LeaveGuarded(),
		IntervalMS:        h.opts.Interval.Milliseconds(),
	}
}

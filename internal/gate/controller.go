// Package gate implements the two-phase countdown a visitor passes before
// being redirected.
//
// A Controller is a plain state machine advanced by Tick. It never reads a
// clock itself: Runner drives it from a ticker, and the web surface replays
// elapsed intervals with CatchUp.
package gate

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"
)

// Phase is the visitor's position in the gate.
type Phase int

const (
	Phase1Running Phase = iota
	Phase1Complete
	Phase2Running
	Phase2Complete
	Redirected
)

// DefaultDuration is the number of ticks in each countdown.
const DefaultDuration = 5

var phaseNames = map[Phase]string{
	Phase1Running:  "phase1_running",
	Phase1Complete: "phase1_complete",
	Phase2Running:  "phase2_running",
	Phase2Complete: "phase2_complete",
	Redirected:     "redirected",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// Running reports whether a countdown is active in p.
func (p Phase) Running() bool { return p == Phase1Running || p == Phase2Running }

// Step is the 1-based page the visitor sees: 1 for the first countdown, 2 after advancing.
func (p Phase) Step() int {
	if p <= Phase1Complete {
		return 1
	}
	return 2
}

// State is a point-in-time view of a Controller.
type State struct {
	Phase     Phase
	Remaining int
	Duration  int
}

// ContinueAvailable reports whether the advance control should be shown.
func (s State) ContinueAvailable() bool { return s.Phase == Phase1Complete }

// ClaimAvailable reports whether the final call-to-action should be shown.
func (s State) ClaimAvailable() bool { return s.Phase == Phase2Complete }

// LeaveGuarded reports whether leaving the page needs confirmation.
func (s State) LeaveGuarded() bool { return s.Phase == Phase1Running }

// Resolver computes the redirect destination at claim time.
type Resolver interface {
	Resolve(ctx context.Context, query url.Values) string
}

// Hooks are called synchronously from the goroutine driving the controller.
type Hooks struct {
	// PhaseComplete fires once when a countdown reaches zero, with the
	// Complete phase just entered.
	PhaseComplete func(Phase)
	// Navigate fires once, with the resolved destination, on a successful claim.
	Navigate func(target string)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDuration sets the ticks per countdown. Values below 1 are ignored.
func WithDuration(ticks int) Option {
	return func(c *Controller) {
		if ticks > 0 {
			c.duration = ticks
		}
	}
}

// WithHooks installs transition callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// Controller sequences one visitor through the gate. It is not safe for
// concurrent use; a single goroutine (see Runner) must own it.
type Controller struct {
	resolver  Resolver
	hooks     Hooks
	duration  int
	phase     Phase
	remaining int
	cancelled bool
}

// New returns a controller in Phase1Running with a full countdown.
func New(resolver Resolver, opts ...Option) *Controller {
	c := &Controller{resolver: resolver, duration: DefaultDuration}
	for _, o := range opts {
		o(c)
	}
	c.phase = Phase1Running
	c.remaining = c.duration
	return c
}

// State returns the current phase and countdown.
func (c *Controller) State() State {
	return State{Phase: c.phase, Remaining: c.remaining, Duration: c.duration}
}

// LeaveGuarded reports whether navigation away must be confirmed.
func (c *Controller) LeaveGuarded() bool {
	return !c.cancelled && c.State().LeaveGuarded()
}

// Tick advances the active countdown by one interval.
func (c *Controller) Tick() {
	if c.cancelled || !c.phase.Running() {
		return
	}
	c.remaining--
	if c.remaining > 0 {
		return
	}
	c.remaining = 0
	if c.phase == Phase1Running {
		c.phase = Phase1Complete
	} else {
		c.phase = Phase2Complete
	}
	log.Debug().Str("phase", c.phase.String()).Msg("countdown complete")
	if c.hooks.PhaseComplete != nil {
		c.hooks.PhaseComplete(c.phase)
	}
}

// Advance moves from Phase1Complete to a fresh Phase2 countdown. It
// reports whether the transition happened; in any other phase it does nothing.
func (c *Controller) Advance() bool {
	if c.cancelled || c.phase != Phase1Complete {
		return false
	}
	c.phase = Phase2Running
	c.remaining = c.duration
	return true
}

// Claim resolves the destination and enters the terminal Redirected phase.
// Only valid in Phase2Complete; otherwise it returns "", false and fires nothing.
func (c *Controller) Claim(ctx context.Context, query url.Values) (string, bool) {
	if c.cancelled || c.phase != Phase2Complete {
		return "", false
	}
	target := c.resolver.Resolve(ctx, query)
	c.phase = Redirected
	log.Debug().Str("target", target).Msg("gate claimed")
	if c.hooks.Navigate != nil {
		c.hooks.Navigate(target)
	}
	return target, true
}

// Cancel stops the controller for good: later ticks and actions are ignored
// and no hook fires again.
func (c *Controller) Cancel() {
	c.cancelled = true
}

// Cancelled reports whether Cancel was called.
func (c *Controller) Cancelled() bool { return c.cancelled }

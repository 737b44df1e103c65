package gate

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Runner drives a Controller from a ticker. The controller is only touched
// by the runner goroutine; Advance, Claim and State are handed to it.
type Runner struct {
	c        *Controller
	clock    clockwork.Clock
	interval time.Duration

	actions  chan func()
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRunner creates a runner ticking c every interval on clock. Use
// clockwork.NewRealClock() in production and a fake clock in tests.
func NewRunner(c *Controller, clock clockwork.Clock, interval time.Duration) *Runner {
	return &Runner{
		c:        c,
		clock:    clock,
		interval: interval,
		actions:  make(chan func()),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins ticking. The runner ends when ctx is cancelled, Stop is
// called, or the gate is claimed.
func (r *Runner) Start(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	go r.loop(ctx, ticker)
}

func (r *Runner) loop(ctx context.Context, ticker clockwork.Ticker) {
	defer close(r.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.c.Cancel()
			log.Debug().Msg("gate runner cancelled")
			return
		case <-r.stop:
			r.c.Cancel()
			log.Debug().Msg("gate runner stopped")
			return
		case <-ticker.Chan():
			r.c.Tick()
		case fn := <-r.actions:
			// A tick that is already due is applied before the action.
			select {
			case <-ticker.Chan():
				r.c.Tick()
			default:
			}
			fn()
		}
		if r.c.State().Phase == Redirected {
			return
		}
	}
}

// do runs fn on the runner goroutine. It reports false if the runner has ended.
func (r *Runner) do(fn func()) bool {
	ran := make(chan struct{})
	select {
	case r.actions <- func() { fn(); close(ran) }:
		<-ran
		return true
	case <-r.done:
		return false
	}
}

// Advance forwards to Controller.Advance.
func (r *Runner) Advance() bool {
	var ok bool
	r.do(func() { ok = r.c.Advance() })
	return ok
}

// Claim forwards to Controller.Claim.
func (r *Runner) Claim(ctx context.Context, query url.Values) (string, bool) {
	var (
		target string
		ok     bool
	)
	r.do(func() { target, ok = r.c.Claim(ctx, query) })
	return target, ok
}

// State returns the controller state, or false once the runner has ended.
func (r *Runner) State() (State, bool) {
	var st State
	ok := r.do(func() { st = r.c.State() })
	return st, ok
}

// Stop cancels the ticker and the controller. Safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// Done is closed when the runner goroutine has exited.
func (r *Runner) Done() <-chan struct{} { return r.done }

package main

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/joestump/joe-gate/internal/gate"
)

func newGateCmd() *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Walk through the gate in the terminal and print the destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			query := url.Values{}
			if ref != "" {
				query.Set("ref", ref)
			}
			return runGate(cmd, b, query, os.Stdin)
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "referral value, as in ?ref=")
	return cmd
}

func runGate(cmd *cobra.Command, b *backend, query url.Values, in io.Reader) error {
	out := cmd.OutOrStdout()
	destination := make(chan string, 1)

	c := gate.New(b.resolver(b.links()),
		gate.WithDuration(b.cfg.Gate.Duration),
		gate.WithHooks(gate.Hooks{
			PhaseComplete: func(p gate.Phase) {
				if p == gate.Phase1Complete {
					fmt.Fprintln(out, "Step 1 done. Press Enter to continue.")
				} else {
					fmt.Fprintln(out, "Step 2 done. Press Enter to get your link.")
				}
			},
			Navigate: func(target string) { destination <- target },
		}),
	)
	r := gate.NewRunner(c, clockwork.NewRealClock(), b.cfg.Gate.Interval)
	r.Start(cmd.Context())
	defer r.Stop()

	fmt.Fprintf(out, "Step 1 of 2: please wait %s...\n", b.cfg.Gate.Interval*time.Duration(b.cfg.Gate.Duration))

	done := make(chan struct{})
	defer close(done)
	lines := scanLines(in, done)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	warned := false

	for {
		select {
		case target := <-destination:
			fmt.Fprintln(out, target)
			return nil
		case <-r.Done():
			// Navigate runs before the runner exits, so a claim is already buffered.
			select {
			case target := <-destination:
				fmt.Fprintln(out, target)
				return nil
			default:
			}
			return fmt.Errorf("gate stopped before a destination was chosen")
		case <-interrupts:
			// Leaving during the first countdown needs a second interrupt.
			if st, ok := r.State(); ok && st.LeaveGuarded() && !warned {
				warned = true
				fmt.Fprintln(out, "Leave the gate? Press Ctrl-C again to quit.")
				continue
			}
			return fmt.Errorf("gate abandoned")
		case _, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			st, running := r.State()
			if !running {
				continue
			}
			switch {
			case st.ContinueAvailable():
				r.Advance()
				fmt.Fprintf(out, "Step 2 of 2: please wait %s...\n", b.cfg.Gate.Interval*time.Duration(st.Duration))
			case st.ClaimAvailable():
				r.Claim(cmd.Context(), query)
			default:
				fmt.Fprintf(out, "Still counting down: %d left.\n", st.Remaining)
			}
		}
	}
}

// scanLines reports each line read from in. The reader goroutine exits at
// EOF or once done is closed.
func scanLines(in io.Reader, done <-chan struct{}) <-chan struct{} {
	lines := make(chan struct{})
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- struct{}{}:
			case <-done:
				return
			}
		}
	}()
	return lines
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/joestump/joe-gate/internal/auth"
	"github.com/joestump/joe-gate/internal/handler"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			verifier, err := b.verifier()
			if err != nil {
				return err
			}

			cfg := b.cfg
			sessionManager := auth.NewSessionManager(b.sessions, cfg.SessionLifetime, !cfg.InsecureCookies)
			linkStore := b.links()

			router := handler.NewRouter(handler.Deps{
				SessionManager: sessionManager,
				Verifier:       verifier,
				LinkStore:      linkStore,
				Resolver:       b.resolver(linkStore),
				Gate:           handler.GateOptions{Duration: cfg.Gate.Duration, Interval: cfg.Gate.Interval},
				Clock:          clockwork.NewRealClock(),
				AllowedOrigins: cfg.CORSAllowedOrigins,
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.HTTP.Addr).Str("store", cfg.Store.Driver).Msg("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

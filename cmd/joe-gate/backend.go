package main

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/joestump/joe-gate/internal/auth"
	"github.com/joestump/joe-gate/internal/config"
	"github.com/joestump/joe-gate/internal/db"
	"github.com/joestump/joe-gate/internal/kv"
	"github.com/joestump/joe-gate/internal/logging"
	"github.com/joestump/joe-gate/internal/redirect"
	"github.com/joestump/joe-gate/internal/store"
)

// backend is the storage selected by store.driver, shared by every command.
type backend struct {
	cfg      *config.Config
	kv       kv.Store
	sessions auth.SessionBackend
	closers  []func() error
}

// openBackend loads config, sets up logging and connects the configured
// store. SQL databases are migrated before use.
func openBackend() (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}

	b := &backend{cfg: cfg}
	switch cfg.Store.Driver {
	case config.StoreSQL:
		database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, database.Close)
		if err := db.Migrate(database, cfg.DB.Driver); err != nil {
			b.Close()
			return nil, err
		}
		sqlKV, err := kv.NewSQLStore(database, cfg.DB.Driver)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.kv = sqlKV
		b.sessions = auth.SessionBackend{DB: database, Driver: cfg.DB.Driver}
	case config.StoreRedis:
		// store.key_prefix is applied by the link store and the flag.
		rs, err := kv.NewRedisStore(cfg.Redis.URL, "")
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, rs.Close)
		b.kv = rs
		b.sessions = auth.SessionBackend{Redis: rs.Client(), Prefix: cfg.Store.KeyPrefix}
	default:
		log.Warn().Msg("using the in-memory store: links and sessions are lost on exit")
		b.kv = kv.NewMemoryStore()
	}
	log.Debug().Str("store", cfg.Store.Driver).Msg("backend ready")
	return b, nil
}

func (b *backend) links() *store.LinkStore {
	return store.NewLinkStore(b.kv, b.cfg.Store.KeyPrefix)
}

func (b *backend) adminFlag() *auth.KVFlag {
	return auth.NewKVFlag(b.kv, b.cfg.Store.KeyPrefix)
}

func (b *backend) resolver(links redirect.LinkSource) *redirect.Resolver {
	opts := redirect.DefaultOptions()
	opts.Base = b.cfg.Redirect.Base
	opts.Default = b.cfg.Redirect.Default
	if len(b.cfg.Redirect.Refs) > 0 {
		opts.Refs = b.cfg.Redirect.Refs
	}
	return redirect.NewResolver(links, opts)
}

func (b *backend) verifier() (*auth.StaticVerifier, error) {
	if err := b.cfg.RequireAdmin(); err != nil {
		return nil, err
	}
	return auth.NewStaticVerifier(b.cfg.Admin.Username, b.cfg.Admin.Password, b.cfg.Admin.PasswordHash)
}

// Close releases connections in reverse order of opening.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

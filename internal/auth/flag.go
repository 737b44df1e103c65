package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog/log"

	"github.com/joestump/joe-gate/internal/kv"
)

// SessionStore holds the admin-session flag. A missing or unreadable flag
// means "not authenticated".
type SessionStore interface {
	IsAdmin(ctx context.Context) bool
	SetAdmin(ctx context.Context, v bool) error
}

// ScsFlag keeps the flag in the request's web session. The context must
// come from a request that passed through the manager's LoadAndSave.
type ScsFlag struct {
	sm *scs.SessionManager
}

// NewScsFlag creates a flag over sm.
func NewScsFlag(sm *scs.SessionManager) *ScsFlag { return &ScsFlag{sm: sm} }

func (f *ScsFlag) IsAdmin(ctx context.Context) bool {
	return f.sm.GetBool(ctx, SessionAdminKey)
}

// SetAdmin sets or clears the flag. Setting it renews the session token.
func (f *ScsFlag) SetAdmin(ctx context.Context, v bool) error {
	if !v {
		f.sm.Remove(ctx, SessionAdminKey)
		return nil
	}
	if err := f.sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	f.sm.Put(ctx, SessionAdminKey, true)
	return nil
}

// KVFlag keeps the flag under a kv key as the string "true". It backs the
// CLI, which has no cookie to carry a session.
type KVFlag struct {
	kv  kv.Store
	key string
}

// NewKVFlag creates a flag stored at prefix+SessionAdminKey.
func NewKVFlag(s kv.Store, prefix string) *KVFlag {
	return &KVFlag{kv: s, key: prefix + SessionAdminKey}
}

func (f *KVFlag) IsAdmin(ctx context.Context) bool {
	raw, err := f.kv.Get(ctx, f.key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			log.Warn().Err(err).Str("key", f.key).Msg("reading admin flag")
		}
		return false
	}
	return string(raw) == "true"
}

func (f *KVFlag) SetAdmin(ctx context.Context, v bool) error {
	if !v {
		return f.kv.Delete(ctx, f.key)
	}
	return f.kv.Set(ctx, f.key, []byte("true"))
}

package auth

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// SessionAdminKey holds the admin flag in the web session.
const SessionAdminKey = "admin-authenticated"

// SessionBackend selects where web sessions live. Redis wins over DB; with
// neither set sessions are kept in memory.
type SessionBackend struct {
	DB     *sqlx.DB
	Driver string
	Redis  *redis.Client
	Prefix string
}

// NewSessionManager creates an SCS session manager on the given backend.
// For DB backends the driver selects the store: "mysql", "postgres", or
// "sqlite3" (default).
func NewSessionManager(b SessionBackend, lifetime time.Duration, secure bool) *scs.SessionManager {
	sm := scs.New()
	switch {
	case b.Redis != nil:
		sm.Store = NewRedisSessionStore(b.Redis, b.Prefix+"session:")
	case b.DB != nil:
		switch b.Driver {
		case "mysql":
			sm.Store = mysqlstore.New(b.DB.DB)
		case "postgres":
			sm.Store = postgresstore.New(b.DB.DB)
		default: // sqlite3
			sm.Store = sqlite3store.New(b.DB.DB)
		}
	default:
		sm.Store = memstore.New()
	}
	sm.Lifetime = lifetime
	sm.Cookie.Name = "joe_gate_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	return sm
}

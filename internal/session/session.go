// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the dashboard cookie session. The session holds
// the auth token of the signed-in administrator and pending flash messages.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/pesantren-go/internal/store"
)

// Lifetime matches the lifetime of an auth session.
const Lifetime = 7 * 24 * time.Hour

// Session keys.
const (
	KeyAuthToken = "auth_token"
	KeyFlash     = "flash"
	KeyFlashType = "flash_type"
)

// Cookie names. The __Host- prefix requires Secure and Path=/ and is only
// used outside development.
const (
	CookieName    = "__Host-session"
	DevCookieName    = "pesantren_session"
)

// New creates a session manager backed by the sessions table of db.
func New(db *sql.DB, dialect store.Dialect, isDev bool) *scs.SessionManager {
	sm := scs.New()

	if dialect == store.DialectPostgres {
		sm.Store = postgresstore.New(db)
	} else {
		sm.Store = sqlite3store.New(db)
	}

	sm.Lifetime = Lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !isDev
	if isDev {
		sm.Cookie.Name = DevCookieName
	} else {
		sm.Cookie.Name = CookieName
	}

	return sm
}

// AuthToken returns the auth token stored in the session, or "".
func AuthToken(sm *scs.SessionManager, r *http.Request) string {
	return sm.GetString(r.Context(), KeyAuthToken)
}

// SignIn stores token after renewing the session token, so a session id
// issued before sign-in cannot be reused.
func SignIn(ctx context.Context, sm *scs.SessionManager, token string) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, KeyAuthToken, token)
	return nil
}

// Clear drops the auth token, keeping any pending flash message.
func Clear(sm *scs.SessionManager, r *http.Request) {
	sm.Remove(r.Context(), KeyAuthToken)
}

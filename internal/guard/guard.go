// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package guard protects the admin dashboard. A request is authorized only
// when it carries a live auth session whose user holds the admin role; a
// session without the role is signed out.
package guard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/pesantren-go/internal/auth"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/store"
)

// Sessions is the auth subsystem as seen by the guard.
type Sessions interface {
	GetSession(ctx context.Context, token string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	OnAuthStateChange(fn func(auth.Event)) func()
}

// Roles is the user_roles table.
type Roles interface {
	MaybeSingle(ctx context.Context, q store.Query) (*model.UserRole, error)
}

// Outcome is the result of a check.
type Outcome int

const (
	// Redirect sends the browser to the login page.
	Redirect Outcome = iota
	// Authorized lets the dashboard render.
	Authorized
)

// Reasons a check redirects.
const (
	ReasonNoSession     = "no_session"
	ReasonSessionFailed = "session_lookup_failed"
	ReasonNotAdmin      = "not_admin"
	ReasonRoleFailed    = "role_lookup_failed"
)

// Principal is the signed-in administrator.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
}

// Decision is the outcome of a check.
type Decision struct {
	Outcome   Outcome
	Principal *Principal
	Reason    string
}

// Options configures the HTTP side of the guard.
type Options struct {
	// LoginPath is where rejected requests are redirected.
	LoginPath string
	// Token returns the auth token stored for the request.
	Token func(r *http.Request) string
	// Clear forgets the stored token. Called on every redirect.
	Clear func(r *http.Request)
}

// Guard checks dashboard access.
type Guard struct {
	sessions Sessions
	roles    Roles
	opts     Options
	logger   *slog.Logger
}

// New creates a guard.
func New(sessions Sessions, roles Roles, opts Options, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{sessions: sessions, roles: roles, opts: opts, logger: logger}
}

// Check runs checking → redirect | authorized for token.
func (g *Guard) Check(ctx context.Context, token string) Decision {
	sess, err := g.sessions.GetSession(ctx, token)
	if err != nil {
		g.logger.Error("auth session lookup failed", "error", err)
		return Decision{Outcome: Redirect, Reason: ReasonSessionFailed}
	}
	if sess == nil {
		return Decision{Outcome: Redirect, Reason: ReasonNoSession}
	}

	role, err := g.roles.MaybeSingle(ctx, store.Where("user_id", sess.UserID).Eq("role", model.RoleAdmin))
	if err != nil || !role.IsAdmin() {
		reason := ReasonNotAdmin
		if err != nil {
			reason = ReasonRoleFailed
			g.logger.Error("admin role lookup failed", "user_id", sess.UserID, "error", err)
		} else {
			g.logger.Warn("signing out session without admin role", "user_id", sess.UserID, "category", model.EventCategoryAuth)
		}
		if err := g.sessions.SignOut(ctx, token); err != nil {
			g.logger.Error("sign out failed", "user_id", sess.UserID, "error", err)
		}
		return Decision{Outcome: Redirect, Reason: reason}
	}

	return Decision{
		Outcome: Authorized,
		Principal: &Principal{
			UserID:    sess.UserID,
			Email:     sess.Email,
			SessionID: sess.ID(),
		},
	}
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by the middleware, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Middleware authorizes every request or redirects it to the login page.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if g.opts.Token != nil {
			token = g.opts.Token(r)
		}
		d := g.Check(r.Context(), token)
		if d.Outcome != Authorized {
			if g.opts.Clear != nil {
				g.opts.Clear(r)
			}
			http.Redirect(w, r, g.opts.LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), d.Principal)))
	})
}

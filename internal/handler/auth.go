// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/pesantren-go/internal/auth"
	"github.com/olegiv/pesantren-go/internal/guard"
	"github.com/olegiv/pesantren-go/internal/i18n"
	"github.com/olegiv/pesantren-go/internal/middleware"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/render"
	"github.com/olegiv/pesantren-go/internal/session"
	"github.com/olegiv/pesantren-go/internal/store"
)

// Authenticator signs administrators in and out.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
}

// AccessChecker decides whether a stored token may open the dashboard.
type AccessChecker interface {
	Check(ctx context.Context, token string) guard.Decision
}

// AuthHandler handles the login page and logout.
type AuthHandler struct {
	page
	auth            Authenticator
	roles           guard.Roles
	access          AccessChecker
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates an AuthHandler. lp may be nil to disable lockout.
func NewAuthHandler(r *render.Renderer, adminPath string, a Authenticator, roles guard.Roles, access AccessChecker,
	sm *scs.SessionManager, lp *middleware.LoginProtection, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		page:            newPage(r, adminPath, logger),
		auth:            a,
		roles:           roles,
		access:          access,
		sessionManager:  sm,
		loginProtection: lp,
	}
}

// LoginData is the login page model.
type LoginData struct {
	Email string
	// ErrorTitle and ErrorMessage are i18n keys.
	ErrorTitle   string
	ErrorMessage string
	// Detail is an already translated suffix of the error message.
	Detail string
}

// LoginForm renders the login page, or goes straight to the dashboard when
// the stored session is already authorized.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if token := session.AuthToken(h.sessionManager, r); token != "" && h.access != nil {
		if d := h.access.Check(r.Context(), token); d.Outcome == guard.Authorized {
			http.Redirect(w, r, h.url(RouteDashboard), http.StatusSeeOther)
			return
		}
		session.Clear(h.sessionManager, r)
	}
	h.renderLogin(w, r, http.StatusOK, LoginData{})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data LoginData) {
	h.render(w, r, status, "auth/login", "login.title", data, "", "")
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, LoginData{ErrorTitle: "login.failed", ErrorMessage: "login.error.generic"})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	lang := middleware.GetLang(r)
	data := LoginData{Email: email, ErrorTitle: "login.failed"}

	if email == "" || password == "" {
		data.ErrorMessage = "login.error.required"
		h.renderLogin(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.Locked(email); locked {
			h.logger.Warn("login attempt on locked account", "email", email, "ip", middleware.ClientIP(r), "category", model.EventCategoryAuth)
			data.ErrorMessage = "login.error.locked"
			data.Detail = i18n.T(lang, "login.error.retry_in", formatWait(remaining))
			h.renderLogin(w, r, http.StatusTooManyRequests, data)
			return
		}
	}

	sess, err := h.auth.SignInWithPassword(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("sign in failed", "email", email, "error", err)
			data.ErrorMessage = "login.error.generic"
			h.renderLogin(w, r, http.StatusInternalServerError, data)
			return
		}
		h.logger.Warn("failed login attempt", "email", email, "ip", middleware.ClientIP(r), "category", model.EventCategoryAuth)
		data.ErrorMessage = "login.error.invalid"
		if h.loginProtection != nil {
			if locked, d := h.loginProtection.RecordFailure(email); locked {
				data.ErrorMessage = "login.error.locked"
				data.Detail = i18n.T(lang, "login.error.retry_in", formatWait(d))
			} else if left := h.loginProtection.AttemptsLeft(email); left <= 2 {
				data.Detail = i18n.T(lang, "login.error.attempts_remaining", left)
			}
		}
		h.renderLogin(w, r, http.StatusUnauthorized, data)
		return
	}

	role, err := h.roles.MaybeSingle(r.Context(), store.Where("user_id", sess.UserID).Eq("role", model.RoleAdmin))
	if err != nil || !role.IsAdmin() {
		if err != nil {
			h.logger.Error("admin role lookup failed", "user_id", sess.UserID, "error", err)
		} else {
			h.logger.Warn("login without admin role", "user_id", sess.UserID, "category", model.EventCategoryAuth)
		}
		if err := h.auth.SignOut(r.Context(), sess.Token); err != nil {
			h.logger.Error("sign out failed", "user_id", sess.UserID, "error", err)
		}
		data.ErrorTitle = "login.denied"
		data.ErrorMessage = "login.denied_message"
		h.renderLogin(w, r, http.StatusForbidden, data)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.Reset(email)
	}
	if err := session.SignIn(r.Context(), h.sessionManager, sess.Token); err != nil {
		logAndInternalError(w, h.logger, "failed to renew session", "error", err)
		return
	}

	h.logger.Info("administrator signed in", "user_id", sess.UserID, "email", sess.Email, "category", model.EventCategoryAuth)
	h.flashSuccess(w, r, h.url(RouteDashboard), "login.success")
}

// Logout ends the auth session. Other dashboard tabs of the session are
// redirected by the auth event stream.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := session.AuthToken(h.sessionManager, r); token != "" {
		if err := h.auth.SignOut(r.Context(), token); err != nil {
			h.logger.Error("sign out failed", "error", err)
		}
	}
	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		h.logger.Error("failed to destroy session", "error", err)
	}
	h.flashAndRedirect(w, r, h.adminPath, "login.logged_out", render.FlashInfo)
}

func formatWait(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Minute).String()
}

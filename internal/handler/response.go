// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/pesantren-go/internal/guard"
	"github.com/olegiv/pesantren-go/internal/i18n"
	"github.com/olegiv/pesantren-go/internal/manager"
	"github.com/olegiv/pesantren-go/internal/middleware"
	"github.com/olegiv/pesantren-go/internal/render"
)

// page renders templates for one handler group.
type page struct {
	renderer  *render.Renderer
	adminPath string
	logger    *slog.Logger
}

func newPage(r *render.Renderer, adminPath string, logger *slog.Logger) page {
	if logger == nil {
		logger = slog.Default()
	}
	return page{renderer: r, adminPath: adminPath, logger: logger}
}

// url returns the absolute dashboard URL of a route.
func (p page) url(route string) string {
	return p.adminPath + route
}

// title translates a title key into the request language.
func (p page) title(r *http.Request, key string) string {
	return i18n.T(middleware.GetLang(r), key)
}

// render renders name with the signed-in administrator filled in. flashKey,
// when set, is shown directly instead of a queued flash.
func (p page) render(w http.ResponseWriter, r *http.Request, status int, name, titleKey string, data any, flashKey, flashType string) {
	td := render.TemplateData{
		Title:     p.title(r, titleKey),
		Data:      data,
		Flash:     flashKey,
		FlashType: flashType,
	}
	if pr := guard.PrincipalFrom(r.Context()); pr != nil {
		td.UserEmail = pr.Email
	}
	if err := p.renderer.RenderStatus(w, r, status, name, td); err != nil {
		logAndInternalError(w, p.logger, "failed to render template", "template", name, "error", err)
	}
}

// flashAndRedirect queues a flash message and redirects with 303.
func (p page) flashAndRedirect(w http.ResponseWriter, r *http.Request, url, key, flashType string) {
	p.renderer.SetFlash(r, key, flashType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashSuccess queues a success message and redirects.
func (p page) flashSuccess(w http.ResponseWriter, r *http.Request, url, key string) {
	p.flashAndRedirect(w, r, url, key, render.FlashSuccess)
}

// flashError queues an error message and redirects.
func (p page) flashError(w http.ResponseWriter, r *http.Request, url, key string) {
	p.flashAndRedirect(w, r, url, key, render.FlashError)
}

// managerError logs unexpected manager failures and returns the message key
// and status to show for err.
func (p page) managerError(err error, msg string, args ...any) (string, int) {
	key := manager.MessageKey(err)
	switch {
	case errors.Is(err, manager.ErrBusy):
		return key, http.StatusConflict
	case errors.Is(err, manager.ErrNotFound):
		return key, http.StatusNotFound
	case manager.IsUserError(err):
		return key, http.StatusUnprocessableEntity
	}
	p.logger.Error(msg, append(args, "error", err)...)
	return key, http.StatusInternalServerError
}

// parseFormOrRedirect parses the form and redirects with an error flash on
// failure. It reports whether the caller can continue.
func (p page) parseFormOrRedirect(w http.ResponseWriter, r *http.Request, redirectURL string) bool {
	if err := r.ParseForm(); err != nil {
		p.flashError(w, r, redirectURL, manager.MsgGeneric)
		return false
	}
	return true
}

// confirmFromForm answers a delete confirmation from the posted form.
func confirmFromForm(r *http.Request) manager.Confirm {
	return func(string) bool {
		return r.PostFormValue("confirm") == formConfirmYes
	}
}

// logAndInternalError logs an error and responds with 500.
func logAndInternalError(w http.ResponseWriter, logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

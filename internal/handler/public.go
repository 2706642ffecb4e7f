// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/pesantren-go/internal/render"
	"github.com/olegiv/pesantren-go/internal/section"
)

// PublicHandler serves the single-page public site.
type PublicHandler struct {
	page
	sources section.Sources
}

// NewPublicHandler creates a PublicHandler reading content from src.
func NewPublicHandler(r *render.Renderer, adminPath string, src section.Sources, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{page: newPage(r, adminPath, logger), sources: src}
}

// Home renders every section. A section whose content cannot be loaded
// shows its defaults.
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	home := section.LoadHome(r.Context(), h.sources)

	td := render.TemplateData{
		Title: home.Profile.Name,
		Data:  home,
	}
	if err := h.renderer.Render(w, r, "public/home", td); err != nil {
		logAndInternalError(w, h.logger, "failed to render home", "error", err)
	}
}

// NotFound renders the 404 page.
func (h *PublicHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	td := render.TemplateData{Title: h.title(r, "site.notfound.title")}
	if err := h.renderer.RenderStatus(w, r, http.StatusNotFound, "public/notfound", td); err != nil {
		logAndInternalError(w, h.logger, "failed to render not found page", "error", err)
	}
}

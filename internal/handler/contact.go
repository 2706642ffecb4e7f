// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/pesantren-go/internal/manager"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/render"
)

// ContactEditor loads and saves the contact row.
type ContactEditor interface {
	Load(ctx context.Context) (*model.ContactInfo, error)
	Save(ctx context.Context, c model.ContactInfo) error
}

// ContactHandler edits the contact info.
type ContactHandler struct {
	page
	contacts ContactEditor
}

// NewContactHandler creates a ContactHandler.
func NewContactHandler(r *render.Renderer, adminPath string, m ContactEditor, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{page: newPage(r, adminPath, logger), contacts: m}
}

// ContactFormData is the contact form model.
type ContactFormData struct {
	Contact    model.ContactInfo
	Missing    bool
	LoadFailed bool
}

// Edit renders the contact form.
func (h *ContactHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var data ContactFormData
	c, err := h.contacts.Load(r.Context())
	switch {
	case err != nil:
		h.logger.Error("failed to load contact", "error", err)
		data.LoadFailed = true
		h.render(w, r, http.StatusOK, "admin/contact", "admin.nav.contact", data, manager.MsgLoadFailed, render.FlashError)
		return
	case c == nil:
		data.Missing = true
	default:
		data.Contact = *c
	}
	h.render(w, r, http.StatusOK, "admin/contact", "admin.nav.contact", data, "", "")
}

// Update saves the contact form.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.parseFormOrRedirect(w, r, h.url(RouteContact)) {
		return
	}

	c := model.ContactInfo{
		ID:        r.PostFormValue("id"),
		Address:   r.PostFormValue("address"),
		WhatsApp:  r.PostFormValue("whatsapp"),
		Email:     r.PostFormValue("email"),
		MapsEmbed: r.PostFormValue("maps_embed"),
	}
	if err := h.contacts.Save(r.Context(), c); err != nil {
		key, status := h.managerError(err, "failed to save contact", "contact_id", c.ID)
		h.render(w, r, status, "admin/contact", "admin.nav.contact", ContactFormData{Contact: c}, key, render.FlashError)
		return
	}

	h.logger.Info("contact updated", "contact_id", c.ID, "category", model.EventCategoryContent)
	h.flashSuccess(w, r, h.url(RouteContact), manager.MsgContactSaved)
}

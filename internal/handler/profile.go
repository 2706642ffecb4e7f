// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/pesantren-go/internal/manager"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/render"
)

// ProfileEditor loads and saves the profile row.
type ProfileEditor interface {
	Load(ctx context.Context) (*model.Profile, error)
	Save(ctx context.Context, p model.Profile) error
}

// ProfileHandler edits the pesantren profile.
type ProfileHandler struct {
	page
	profiles ProfileEditor
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(r *render.Renderer, adminPath string, m ProfileEditor, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{page: newPage(r, adminPath, logger), profiles: m}
}

// ProfileFormData is the profile form model.
type ProfileFormData struct {
	Profile    model.Profile
	NewMission string
	// Missing is set when no profile row exists yet.
	Missing    bool
	LoadFailed bool
}

// Edit renders the profile form with the stored values.
func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var data ProfileFormData
	p, err := h.profiles.Load(r.Context())
	switch {
	case err != nil:
		h.logger.Error("failed to load profile", "error", err)
		data.LoadFailed = true
		h.render(w, r, http.StatusOK, "admin/profile", "admin.nav.profile", data, manager.MsgLoadFailed, render.FlashError)
		return
	case p == nil:
		data.Missing = true
	default:
		data.Profile = *p
	}
	h.render(w, r, http.StatusOK, "admin/profile", "admin.nav.profile", data, "", "")
}

// profileFromForm reads the form state. Blank mission items are dropped.
func profileFromForm(r *http.Request) model.Profile {
	p := model.Profile{
		ID:           r.PostFormValue("id"),
		Name:         r.PostFormValue("name"),
		ShortHistory: r.PostFormValue("short_history"),
		Vision:       r.PostFormValue("vision"),
		Mission:      []string{},
	}
	for _, item := range r.PostForm["mission"] {
		if item = strings.TrimSpace(item); item != "" {
			p.Mission = append(p.Mission, item)
		}
	}
	return p
}

// Update handles the profile form. The add and remove mission buttons edit
// the form state without saving; the save button writes the whole row.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.parseFormOrRedirect(w, r, h.url(RouteProfile)) {
		return
	}

	data := ProfileFormData{Profile: profileFromForm(r)}
	newMission := r.PostFormValue("new_mission")

	if _, ok := r.PostForm["add_mission"]; ok {
		if !manager.AddMission(&data.Profile, newMission) {
			data.NewMission = newMission
		}
		h.render(w, r, http.StatusOK, "admin/profile", "admin.nav.profile", data, "", "")
		return
	}
	if v, ok := r.PostForm["remove_mission"]; ok && len(v) > 0 {
		if i, err := strconv.Atoi(v[0]); err == nil {
			manager.RemoveMission(&data.Profile, i)
		}
		data.NewMission = newMission
		h.render(w, r, http.StatusOK, "admin/profile", "admin.nav.profile", data, "", "")
		return
	}

	if err := h.profiles.Save(r.Context(), data.Profile); err != nil {
		key, status := h.managerError(err, "failed to save profile", "profile_id", data.Profile.ID)
		data.NewMission = newMission
		h.render(w, r, status, "admin/profile", "admin.nav.profile", data, key, render.FlashError)
		return
	}

	h.logger.Info("profile updated", "profile_id", data.Profile.ID, "category", model.EventCategoryContent)
	h.flashSuccess(w, r, h.url(RouteProfile), manager.MsgProfileSaved)
}

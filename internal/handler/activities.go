// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/pesantren-go/internal/manager"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/render"
)

// ActivityEditor is the activities manager.
type ActivityEditor interface {
	List(ctx context.Context) ([]model.Activity, error)
	Get(ctx context.Context, id string) (*model.Activity, error)
	Create(ctx context.Context, in manager.ActivityInput) (string, error)
	Update(ctx context.Context, id string, in manager.ActivityInput) error
	Delete(ctx context.Context, id string, confirm manager.Confirm) error
}

// ActivitiesHandler lists and edits activities.
type ActivitiesHandler struct {
	page
	activities ActivityEditor
}

// NewActivitiesHandler creates an ActivitiesHandler.
func NewActivitiesHandler(r *render.Renderer, adminPath string, m ActivityEditor, logger *slog.Logger) *ActivitiesHandler {
	return &ActivitiesHandler{page: newPage(r, adminPath, logger), activities: m}
}

// ActivityForm is the open create or edit dialog.
type ActivityForm struct {
	// ID is empty when creating.
	ID     string
	Input  manager.ActivityInput
	Action string
}

// ActivitiesData is the activities page model.
type ActivitiesData struct {
	Items      []model.Activity
	Categories []model.Category
	LoadFailed bool
	// Form is nil while the dialog is closed.
	Form *ActivityForm
}

func (h *ActivitiesHandler) renderList(w http.ResponseWriter, r *http.Request, status int, form *ActivityForm, flashKey string) {
	data := ActivitiesData{Categories: model.Categories, Form: form}
	items, err := h.activities.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list activities", "error", err)
		data.LoadFailed = true
		if flashKey == "" {
			flashKey = manager.MsgLoadFailed
		}
	}
	data.Items = items

	flashType := ""
	if flashKey != "" {
		flashType = render.FlashError
	}
	h.render(w, r, status, "admin/activities", "admin.nav.activities", data, flashKey, flashType)
}

// List renders the activities table.
func (h *ActivitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, http.StatusOK, nil, "")
}

// NewForm opens the create dialog.
func (h *ActivitiesHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	form := &ActivityForm{
		Input:  manager.ActivityInput{Category: string(model.CategoryDaily)},
		Action: h.url(RouteActivities),
	}
	h.renderList(w, r, http.StatusOK, form, "")
}

func activityInputFromForm(r *http.Request) manager.ActivityInput {
	return manager.ActivityInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Category:    r.PostFormValue("category"),
		TimeInfo:    r.PostFormValue("time_info"),
	}
}

// Create inserts an activity. On failure the dialog stays open with the
// submitted values.
func (h *ActivitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	listURL := h.url(RouteActivities)
	if !h.parseFormOrRedirect(w, r, listURL) {
		return
	}

	in := activityInputFromForm(r)
	id, err := h.activities.Create(r.Context(), in)
	if err != nil {
		key, status := h.managerError(err, "failed to create activity", "title", in.Title)
		h.renderList(w, r, status, &ActivityForm{Input: in, Action: listURL}, key)
		return
	}

	h.logger.Info("activity created", "activity_id", id, "title", in.Title, "category", model.EventCategoryContent)
	h.flashSuccess(w, r, listURL, manager.MsgActivityCreated)
}

// EditForm opens the edit dialog.
func (h *ActivitiesHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.activities.Get(r.Context(), id)
	if err != nil {
		h.notFoundOrError(w, r, err, id)
		return
	}
	form := &ActivityForm{
		ID:     a.ID,
		Input:  manager.FromActivity(*a),
		Action: h.url(RouteActivities + "/" + a.ID),
	}
	h.renderList(w, r, http.StatusOK, form, "")
}

// Update saves the edit dialog.
func (h *ActivitiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listURL := h.url(RouteActivities)
	if !h.parseFormOrRedirect(w, r, listURL) {
		return
	}

	in := activityInputFromForm(r)
	if err := h.activities.Update(r.Context(), id, in); err != nil {
		if errors.Is(err, manager.ErrNotFound) {
			h.flashError(w, r, listURL, manager.MsgNotFound)
			return
		}
		key, status := h.managerError(err, "failed to update activity", "activity_id", id)
		h.renderList(w, r, status, &ActivityForm{ID: id, Input: in, Action: h.url(RouteActivities + "/" + id)}, key)
		return
	}

	h.logger.Info("activity updated", "activity_id", id, "category", model.EventCategoryContent)
	h.flashSuccess(w, r, listURL, manager.MsgActivityUpdated)
}

// ConfirmDelete asks for confirmation before deleting.
func (h *ActivitiesHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.activities.Get(r.Context(), id)
	if err != nil {
		h.notFoundOrError(w, r, err, id)
		return
	}
	h.render(w, r, http.StatusOK, "admin/confirm", "admin.delete_confirm_title", ConfirmData{
		Prompt:    manager.ConfirmDeleteActivity,
		Subject:   a.Title,
		Action:    h.url(RouteActivities + "/" + a.ID + suffixDelete),
		CancelURL: h.url(RouteActivities),
	}, "", "")
}

// Delete removes an activity once the form confirms it.
func (h *ActivitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listURL := h.url(RouteActivities)
	if !h.parseFormOrRedirect(w, r, listURL) {
		return
	}

	if err := h.activities.Delete(r.Context(), id, confirmFromForm(r)); err != nil {
		if errors.Is(err, manager.ErrNotConfirmed) {
			h.flashAndRedirect(w, r, listURL, manager.MsgNotConfirmed, render.FlashInfo)
			return
		}
		key, _ := h.managerError(err, "failed to delete activity", "activity_id", id)
		h.flashError(w, r, listURL, key)
		return
	}

	h.logger.Info("activity deleted", "activity_id", id, "category", model.EventCategoryContent)
	h.flashSuccess(w, r, listURL, manager.MsgActivityDeleted)
}

func (h *ActivitiesHandler) notFoundOrError(w http.ResponseWriter, r *http.Request, err error, id string) {
	if !errors.Is(err, manager.ErrNotFound) {
		h.logger.Error("failed to load activity", "activity_id", id, "error", err)
		h.flashError(w, r, h.url(RouteActivities), manager.MsgLoadFailed)
		return
	}
	h.flashError(w, r, h.url(RouteActivities), manager.MsgNotFound)
}

// ConfirmData is the delete confirmation page model.
type ConfirmData struct {
	// Prompt is an i18n key.
	Prompt    string
	Subject   string
	ImageURL  string
	Action    string
	CancelURL string
}

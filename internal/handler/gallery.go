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

// multipartMemory is kept in memory while parsing an upload; the rest
// spills to temporary files.
const multipartMemory = 1 << 20

// GalleryEditor is the gallery manager.
type GalleryEditor interface {
	List(ctx context.Context) ([]model.GalleryItem, error)
	Get(ctx context.Context, id string) (*model.GalleryItem, error)
	Upload(ctx context.Context, in manager.UploadInput) (*model.GalleryItem, error)
	Update(ctx context.Context, id, title, description string) error
	Delete(ctx context.Context, item model.GalleryItem, confirm manager.Confirm) error
}

// GalleryHandler uploads, edits and deletes gallery photos.
type GalleryHandler struct {
	page
	gallery GalleryEditor
}

// NewGalleryHandler creates a GalleryHandler.
func NewGalleryHandler(r *render.Renderer, adminPath string, m GalleryEditor, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{page: newPage(r, adminPath, logger), gallery: m}
}

// PhotoForm is the open upload or edit dialog.
type PhotoForm struct {
	// ID is empty when uploading.
	ID          string
	Title       string
	Description string
	ImageURL    string
	Action      string
}

// GalleryData is the gallery page model.
type GalleryData struct {
	Items        []model.GalleryItem
	LoadFailed   bool
	MaxImageSize int64
	// Form is nil while the dialog is closed.
	Form *PhotoForm
}

func (h *GalleryHandler) renderList(w http.ResponseWriter, r *http.Request, status int, form *PhotoForm, flashKey string) {
	data := GalleryData{MaxImageSize: manager.MaxImageSize, Form: form}
	items, err := h.gallery.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list gallery", "error", err)
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
	h.render(w, r, status, "admin/gallery", "admin.nav.gallery", data, flashKey, flashType)
}

// List renders the photo grid.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, http.StatusOK, nil, "")
}

// NewForm opens the upload dialog.
func (h *GalleryHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, http.StatusOK, &PhotoForm{Action: h.url(RouteGallery)}, "")
}

// Upload stores a new photo. The body is capped a little above the image
// limit so the oversize case is reported as a validation message.
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	listURL := h.url(RouteGallery)
	form := &PhotoForm{Action: listURL}

	r.Body = http.MaxBytesReader(w, r.Body, manager.MaxImageSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		key := manager.MsgGeneric
		status := http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			key, status = manager.MsgFileTooLarge, http.StatusRequestEntityTooLarge
		}
		h.logger.Warn("failed to parse upload", "error", err)
		h.renderList(w, r, status, form, key)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form.Title = r.PostFormValue("title")
	form.Description = r.PostFormValue("description")
	in := manager.UploadInput{Title: form.Title, Description: form.Description}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		in.File = file
		in.Filename = header.Filename
		in.Size = header.Size
		in.ContentType = header.Header.Get("Content-Type")
	case !errors.Is(err, http.ErrMissingFile):
		h.logger.Warn("failed to read uploaded file", "error", err)
	}

	item, err := h.gallery.Upload(r.Context(), in)
	if err != nil {
		key, status := h.managerError(err, "failed to upload photo", "title", in.Title, "filename", in.Filename)
		h.renderList(w, r, status, form, key)
		return
	}

	h.logger.Info("photo uploaded", "photo_id", item.ID, "title", item.Title, "category", model.EventCategoryGallery)
	h.flashSuccess(w, r, listURL, manager.MsgPhotoUploaded)
}

// EditForm opens the edit dialog.
func (h *GalleryHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, err := h.gallery.Get(r.Context(), id)
	if err != nil {
		h.notFoundOrError(w, r, err, id)
		return
	}
	h.renderList(w, r, http.StatusOK, &PhotoForm{
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		ImageURL:    it.ImageURL,
		Action:      h.url(RouteGallery + "/" + it.ID),
	}, "")
}

// Update saves the title and description.
func (h *GalleryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listURL := h.url(RouteGallery)
	if !h.parseFormOrRedirect(w, r, listURL) {
		return
	}

	form := &PhotoForm{
		ID:          id,
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		ImageURL:    r.PostFormValue("image_url"),
		Action:      h.url(RouteGallery + "/" + id),
	}
	if err := h.gallery.Update(r.Context(), id, form.Title, form.Description); err != nil {
		if errors.Is(err, manager.ErrNotFound) {
			h.flashError(w, r, listURL, manager.MsgNotFound)
			return
		}
		key, status := h.managerError(err, "failed to update photo", "photo_id", id)
		h.renderList(w, r, status, form, key)
		return
	}

	h.logger.Info("photo updated", "photo_id", id, "category", model.EventCategoryGallery)
	h.flashSuccess(w, r, listURL, manager.MsgPhotoUpdated)
}

// ConfirmDelete asks for confirmation before deleting.
func (h *GalleryHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, err := h.gallery.Get(r.Context(), id)
	if err != nil {
		h.notFoundOrError(w, r, err, id)
		return
	}
	h.render(w, r, http.StatusOK, "admin/confirm", "admin.delete_confirm_title", ConfirmData{
		Prompt:    manager.ConfirmDeletePhoto,
		Subject:   it.Title,
		ImageURL:  it.ImageURL,
		Action:    h.url(RouteGallery + "/" + it.ID + suffixDelete),
		CancelURL: h.url(RouteGallery),
	}, "", "")
}

// Delete removes the photo and its stored image once the form confirms it.
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listURL := h.url(RouteGallery)
	if !h.parseFormOrRedirect(w, r, listURL) {
		return
	}

	it, err := h.gallery.Get(r.Context(), id)
	if err != nil {
		h.notFoundOrError(w, r, err, id)
		return
	}
	if err := h.gallery.Delete(r.Context(), *it, confirmFromForm(r)); err != nil {
		if errors.Is(err, manager.ErrNotConfirmed) {
			h.flashAndRedirect(w, r, listURL, manager.MsgNotConfirmed, render.FlashInfo)
			return
		}
		key, _ := h.managerError(err, "failed to delete photo", "photo_id", id)
		h.flashError(w, r, listURL, key)
		return
	}

	h.logger.Info("photo deleted", "photo_id", id, "category", model.EventCategoryGallery)
	h.flashSuccess(w, r, listURL, manager.MsgPhotoDeleted)
}

func (h *GalleryHandler) notFoundOrError(w http.ResponseWriter, r *http.Request, err error, id string) {
	if !errors.Is(err, manager.ErrNotFound) {
		h.logger.Error("failed to load photo", "photo_id", id, "error", err)
		h.flashError(w, r, h.url(RouteGallery), manager.MsgLoadFailed)
		return
	}
	h.flashError(w, r, h.url(RouteGallery), manager.MsgNotFound)
}

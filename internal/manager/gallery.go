// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package manager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/olegiv/pesantren-go/internal/imaging"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/store"
)

// MaxImageSize is the upload ceiling.
const MaxImageSize = 5 << 20

// GalleryPrefix is the storage directory of uploaded photos.
const GalleryPrefix = "gallery/"

const nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Bucket is the object storage the gallery uploads to.
type Bucket interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error
	PublicURL(objectPath string) string
	PathFromURL(rawURL string) (string, bool)
	Remove(ctx context.Context, objectPaths ...string) error
}

// ValidateImage checks the declared type and size of a file.
func ValidateImage(contentType string, size int64) error {
	if !imaging.IsImageType(contentType) {
		return ErrNotImage
	}
	if size > MaxImageSize {
		return ErrFileTooLarge
	}
	return nil
}

// UploadInput is the photo upload form.
type UploadInput struct {
	Title       string
	Description string

	File        io.Reader
	Filename    string
	Size        int64
	ContentType string
}

// GalleryManager uploads, edits and deletes gallery photos.
type GalleryManager struct {
	inFlight
	table     Table[model.GalleryItem]
	bucket    Bucket
	processor *imaging.Processor
	logger    *slog.Logger
	now       func() time.Time
}

// NewGalleryManager creates a GalleryManager. processor may be nil, in
// which case files are stored as uploaded.
func NewGalleryManager(t Table[model.GalleryItem], b Bucket, p *imaging.Processor, logger *slog.Logger) *GalleryManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &GalleryManager{
		table:     t,
		bucket:    b,
		processor: p,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns every photo, newest first.
func (m *GalleryManager) List(ctx context.Context) ([]model.GalleryItem, error) {
	rows, err := m.table.Select(ctx, store.All().Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("listing gallery: %w", err)
	}
	return rows, nil
}

// Get returns one photo.
func (m *GalleryManager) Get(ctx context.Context, id string) (*model.GalleryItem, error) {
	it, err := m.table.MaybeSingle(ctx, store.Where("id", id))
	if err != nil {
		return nil, fmt.Errorf("loading gallery item: %w", err)
	}
	if it == nil {
		return nil, ErrNotFound
	}
	return it, nil
}

// objectPath builds gallery/<unix-millis>-<random>.<ext>.
func (m *GalleryManager) objectPath(ext string) (string, error) {
	suffix, err := nanoid.Generate(nameAlphabet, 10)
	if err != nil {
		return "", fmt.Errorf("generating file name: %w", err)
	}
	return GalleryPrefix + strconv.FormatInt(m.now().UnixMilli(), 10) + "-" + suffix + ext, nil
}

// readImage reads the whole file, enforcing the size ceiling on the actual
// content, and normalises it when a processor is configured.
func (m *GalleryManager) readImage(in UploadInput) (data []byte, contentType, ext string, err error) {
	data, err = io.ReadAll(io.LimitReader(in.File, MaxImageSize+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, "", "", ErrFileTooLarge
	}

	if m.processor == nil {
		return data, in.ContentType, strings.ToLower(path.Ext(in.Filename)), nil
	}
	res, err := m.processor.Normalize(bytes.NewReader(data))
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %w", ErrNotImage, err)
	}
	return res.Data, res.MimeType, res.Ext, nil
}

// Upload stores the photo and creates its row. The declared type and size
// are checked before anything touches storage. When the row insert fails
// the uploaded object is removed again.
func (m *GalleryManager) Upload(ctx context.Context, in UploadInput) (*model.GalleryItem, error) {
	done, err := m.begin(ActionUpload)
	if err != nil {
		return nil, err
	}
	defer done()

	title := strings.TrimSpace(in.Title)
	if err := required("title", MsgTitleRequired, title); err != nil {
		return nil, err
	}
	if in.File == nil {
		return nil, &FieldError{Field: "file", Key: MsgImageRequired}
	}
	if err := ValidateImage(in.ContentType, in.Size); err != nil {
		return nil, err
	}

	data, contentType, ext, err := m.readImage(in)
	if err != nil {
		return nil, err
	}
	objectPath, err := m.objectPath(ext)
	if err != nil {
		return nil, err
	}

	if err := m.bucket.Upload(ctx, objectPath, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("uploading photo: %w", err)
	}
	url := m.bucket.PublicURL(objectPath)

	desc := strings.TrimSpace(in.Description)
	id, err := m.table.Insert(ctx, store.Values{
		"title":       title,
		"image_url":   url,
		"description": store.NullString(desc),
	})
	if err != nil {
		if rmErr := m.bucket.Remove(context.WithoutCancel(ctx), objectPath); rmErr != nil {
			m.logger.Error("failed to remove orphaned gallery upload", "path", objectPath, "error", rmErr)
		}
		return nil, fmt.Errorf("creating gallery item: %w", err)
	}

	m.logger.Info("gallery photo uploaded", "id", id, "path", objectPath, "bytes", len(data))
	return &model.GalleryItem{ID: id, Title: title, ImageURL: url, Description: desc}, nil
}

// Update edits the title and description of photo id.
func (m *GalleryManager) Update(ctx context.Context, id, title, description string) error {
	done, err := m.begin(ActionUpdate)
	if err != nil {
		return err
	}
	defer done()

	title = strings.TrimSpace(title)
	if err := required("title", MsgTitleRequired, title); err != nil {
		return err
	}
	n, err := m.table.Update(ctx, store.Values{
		"title":       title,
		"description": store.NullString(strings.TrimSpace(description)),
	}, store.Where("id", id))
	if err != nil {
		return fmt.Errorf("updating gallery item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the stored object and then the row once the user confirms.
// A failed storage removal is logged and does not stop the row delete.
func (m *GalleryManager) Delete(ctx context.Context, item model.GalleryItem, confirm Confirm) error {
	if confirm == nil || !confirm(ConfirmDeletePhoto) {
		return ErrNotConfirmed
	}
	done, err := m.begin(ActionDelete)
	if err != nil {
		return err
	}
	defer done()

	if objectPath, ok := m.bucket.PathFromURL(item.ImageURL); ok {
		if err := m.bucket.Remove(ctx, objectPath); err != nil {
			m.logger.Warn("failed to remove gallery object", "path", objectPath, "error", err)
		}
	} else {
		m.logger.Warn("gallery image is not in storage, skipping removal", "id", item.ID, "url", item.ImageURL)
	}

	n, err := m.table.Delete(ctx, store.Where("id", item.ID))
	if err != nil {
		return fmt.Errorf("deleting gallery item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

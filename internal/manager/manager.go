// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package manager implements the admin editing operations for the profile,
// activities, gallery and contact resources. Managers validate input, issue
// exactly one remote mutation per action and report the outcome as an i18n
// message key for the dashboard's flash notification.
package manager

import (
	"context"
	"errors"
	"sync"

	"github.com/olegiv/pesantren-go/internal/store"
)

// Sentinel errors. Use errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotConfirmed = errors.New("action not confirmed")
	ErrBusy         = errors.New("action already in progress")
	ErrNotFound     = errors.New("record not found")
	ErrNotImage     = errors.New("file is not an image")
	ErrFileTooLarge = errors.New("file too large")
)

// Table is the subset of a resource table the managers use.
type Table[T any] interface {
	Select(ctx context.Context, q store.Query) ([]T, error)
	MaybeSingle(ctx context.Context, q store.Query) (*T, error)
	Insert(ctx context.Context, vals store.Values) (string, error)
	Update(ctx context.Context, vals store.Values, q store.Query) (int64, error)
	Delete(ctx context.Context, q store.Query) (int64, error)
}

// Confirm asks the user to confirm prompt, an i18n key.
type Confirm func(prompt string) bool

// FieldError is a required-field failure. It matches ErrValidation.
type FieldError struct {
	Field string
	Key   string
}

func (e *FieldError) Error() string {
	return "validation failed: " + e.Field
}

// Is reports ErrValidation.
func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

func required(field, key, value string) error {
	if value == "" {
		return &FieldError{Field: field, Key: key}
	}
	return nil
}

// Message keys shown in flash notifications.
const (
	MsgTitleRequired   = "manager.error.title_required"
	MsgNameRequired    = "manager.error.name_required"
	MsgAddressRequired = "manager.error.address_required"
	MsgInvalidCategory = "manager.error.invalid_category"
	MsgImageRequired   = "manager.error.image_required"
	MsgNotImage        = "manager.error.not_image"
	MsgFileTooLarge    = "manager.error.file_too_large"
	MsgBusy            = "manager.error.busy"
	MsgNotFound        = "manager.error.not_found"
	MsgNotConfirmed    = "manager.error.not_confirmed"
	MsgGeneric         = "manager.error.generic"
	MsgLoadFailed      = "manager.error.load_failed"

	MsgProfileSaved    = "manager.profile.saved"
	MsgContactSaved    = "manager.contact.saved"
	MsgActivityCreated = "manager.activity.created"
	MsgActivityUpdated = "manager.activity.updated"
	MsgActivityDeleted = "manager.activity.deleted"
	MsgPhotoUploaded   = "manager.gallery.uploaded"
	MsgPhotoUpdated    = "manager.gallery.updated"
	MsgPhotoDeleted    = "manager.gallery.deleted"

	ConfirmDeleteActivity = "manager.activity.confirm_delete"
	ConfirmDeletePhoto    = "manager.gallery.confirm_delete"
)

// MessageKey maps an error returned by a manager to the message key shown
// to the user. Unexpected errors map to a generic message; their details
// belong in the log.
func MessageKey(err error) string {
	var fe *FieldError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Key
	case errors.Is(err, ErrNotImage):
		return MsgNotImage
	case errors.Is(err, ErrFileTooLarge):
		return MsgFileTooLarge
	case errors.Is(err, ErrBusy):
		return MsgBusy
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrNotConfirmed):
		return MsgNotConfirmed
	default:
		return MsgGeneric
	}
}

// IsUserError reports whether err is a validation or upload rejection that
// needs no log entry.
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotImage) ||
		errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrNotConfirmed) ||
		errors.Is(err, ErrBusy)
}

// inFlight tracks running actions. A second call of the same action while
// the first is running fails with ErrBusy instead of queuing.
type inFlight struct {
	mu      sync.Mutex
	running map[string]bool
}

func (f *inFlight) begin(action string) (done func(), err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running == nil {
		f.running = make(map[string]bool)
	}
	if f.running[action] {
		return nil, ErrBusy
	}
	f.running[action] = true
	return func() {
		f.mu.Lock()
		delete(f.running, action)
		f.mu.Unlock()
	}, nil
}

// Busy reports whether action is running.
func (f *inFlight) Busy(action string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[action]
}

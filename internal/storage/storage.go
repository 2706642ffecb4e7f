// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage is the object storage side of the data client. Objects
// live in named buckets and are addressed by a slash-separated path; each
// object has a stable public URL from which its path can be recovered.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

// PublicPrefix is the URL prefix under which public bucket objects are served.
const PublicPrefix = "/storage/v1/object/public/"

var (
	// ErrInvalidPath is returned for empty, absolute or escaping object paths.
	ErrInvalidPath = errors.New("invalid object path")
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
)

// Object describes a stored object.
type Object struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Bucket stores objects and exposes them at public URLs.
type Bucket interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error
	PublicURL(objectPath string) string
	// PathFromURL recovers the object path from a URL returned by PublicURL.
	// Only the path of the URL is compared, so URLs issued under an earlier
	// public base URL still resolve.
	PathFromURL(rawURL string) (string, bool)
	// Remove deletes the objects. Missing objects are ignored.
	Remove(ctx context.Context, objectPaths ...string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// CleanPath validates an object path and returns its canonical form.
func CleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || cleaned != p {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// pathFromURL strips basePath from the path of rawURL and validates the
// remainder. Scheme, host, query and fragment are ignored.
func pathFromURL(basePath, rawURL string) (string, bool) {
	if basePath == "" || rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || !strings.HasPrefix(u.Path, basePath) {
		return "", false
	}
	p, err := CleanPath(strings.TrimPrefix(u.Path, basePath))
	if err != nil {
		return "", false
	}
	return p, true
}

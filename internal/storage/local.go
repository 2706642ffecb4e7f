// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalBucket stores objects on the filesystem under <root>/<bucket>.
type LocalBucket struct {
	name     string
	dir      string
	baseURL  string
	basePath string
}

// NewLocalBucket creates the bucket directory if needed. baseURL is prepended
// to public URLs; empty gives root-relative URLs.
func NewLocalBucket(root, name, baseURL string) (*LocalBucket, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating bucket directory: %w", err)
	}
	return &LocalBucket{
		name:     name,
		dir:      dir,
		baseURL:  strings.TrimSuffix(baseURL, "/") + PublicPrefix + name + "/",
		basePath: PublicPrefix + name + "/",
	}, nil
}

func (b *LocalBucket) filePath(objectPath string) (string, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.dir, filepath.FromSlash(p)), nil
}

// Upload implements Bucket. The object is written to a temporary file first
// so readers never see a partial file.
func (b *LocalBucket) Upload(_ context.Context, objectPath string, r io.Reader, _ int64, _ string) error {
	dst, err := b.filePath(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing object: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storing object: %w", err)
	}
	return nil
}

// PublicURL implements Bucket.
func (b *LocalBucket) PublicURL(objectPath string) string {
	return b.baseURL + objectPath
}

// PathFromURL implements Bucket.
func (b *LocalBucket) PathFromURL(rawURL string) (string, bool) {
	return pathFromURL(b.basePath, rawURL)
}

// Remove implements Bucket.
func (b *LocalBucket) Remove(_ context.Context, objectPaths ...string) error {
	var errs []error
	for _, p := range objectPaths {
		fp, err := b.filePath(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		if err := os.Remove(fp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// List implements Bucket.
func (b *LocalBucket) List(_ context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(b.dir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(b.dir, fp)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Path: rel, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing bucket %s: %w", b.name, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Handler serves the bucket's objects. Mount it at PublicPrefix + name + "/".
func (b *LocalBucket) Handler() http.Handler {
	fsys := http.Dir(b.dir)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, "/")
		if _, err := CleanPath(p); err != nil || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		f, err := fsys.Open("/" + p)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

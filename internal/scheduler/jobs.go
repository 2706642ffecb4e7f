// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/storage"
	"github.com/olegiv/pesantren-go/internal/store"
)

// Job names.
const (
	JobSessionPurge = "auth_session_purge"
	JobOrphanSweep  = "gallery_orphan_sweep"
	JobGeoIPReload  = "geoip_reload"
)

// OrphanMinAge protects uploads whose row insert may still be in flight.
const OrphanMinAge = time.Hour

// ErrUnresolvedReference aborts an orphan sweep when a gallery row points at
// an image the bucket cannot map back to an object path.
var ErrUnresolvedReference = errors.New("gallery image URL does not resolve to a stored object")

// SessionPurger deletes expired auth sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeSessionsJob deletes expired auth sessions.
func PurgeSessionsJob(schedule string, p SessionPurger, logger *slog.Logger) Job {
	return Job{
		Name:        JobSessionPurge,
		Description: "Delete expired admin sign-in sessions",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged expired auth sessions", "count", n)
			}
			return nil
		},
	}
}

// ObjectStore is the bucket side of the orphan sweep.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	PathFromURL(rawURL string) (string, bool)
	Remove(ctx context.Context, objectPaths ...string) error
}

// GalleryRows lists gallery rows.
type GalleryRows interface {
	Select(ctx context.Context, q store.Query) ([]model.GalleryItem, error)
}

// SweepOrphans removes objects under prefix that are older than minAge and
// referenced by no gallery row. It returns the removed paths. Nothing is
// removed unless every non-empty row image URL resolves to an object path.
func SweepOrphans(ctx context.Context, bucket ObjectStore, rows GalleryRows, prefix string, now time.Time, minAge time.Duration) ([]string, error) {
	items, err := rows.Select(ctx, store.All())
	if err != nil {
		return nil, fmt.Errorf("listing gallery rows: %w", err)
	}
	referenced := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ImageURL == "" {
			continue
		}
		p, ok := bucket.PathFromURL(it.ImageURL)
		if !ok {
			return nil, fmt.Errorf("photo %s (%s): %w", it.ID, it.ImageURL, ErrUnresolvedReference)
		}
		referenced[p] = true
	}

	objects, err := bucket.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing gallery objects: %w", err)
	}
	var orphans []string
	for _, obj := range objects {
		if referenced[obj.Path] || now.Sub(obj.ModTime) < minAge {
			continue
		}
		orphans = append(orphans, obj.Path)
	}
	if len(orphans) == 0 {
		return nil, nil
	}
	if err := bucket.Remove(ctx, orphans...); err != nil {
		return nil, fmt.Errorf("removing orphaned objects: %w", err)
	}
	return orphans, nil
}

// OrphanSweepJob removes gallery objects left behind by failed uploads.
func OrphanSweepJob(schedule, prefix string, bucket ObjectStore, rows GalleryRows, logger *slog.Logger) Job {
	return Job{
		Name:        JobOrphanSweep,
		Description: "Remove gallery files that no photo references",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			removed, err := SweepOrphans(ctx, bucket, rows, prefix, time.Now(), OrphanMinAge)
			if err != nil {
				return err
			}
			if len(removed) > 0 {
				logger.Warn("removed orphaned gallery objects", "count", len(removed), "paths", removed, "category", model.EventCategoryGallery)
			}
			return nil
		},
	}
}

// Reloader reloads an on-disk database.
type Reloader interface {
	Reload() error
}

// GeoIPReloadJob picks up a replaced GeoIP database file.
func GeoIPReloadJob(schedule string, r Reloader) Job {
	return Job{
		Name:        JobGeoIPReload,
		Description: "Reload the GeoIP country database",
		Schedule:    schedule,
		Run: func(context.Context) error {
			return r.Reload()
		},
	}
}

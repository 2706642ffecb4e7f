// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tracking records page views. Each view is written by a detached
// goroutine; failures go to the logger and never reach the request.
package tracking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/pesantren-go/internal/store"
)

// DefaultTimeout bounds a single page view insert.
const DefaultTimeout = 5 * time.Second

// Inserter is the page_views table.
type Inserter interface {
	Insert(ctx context.Context, vals store.Values) (string, error)
}

// CountryLookup resolves client addresses to country codes.
type CountryLookup interface {
	Country(ip string) string
}

// Tracker writes page views in the background.
type Tracker struct {
	views   Inserter
	geo     CountryLookup
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a tracker. geo may be nil.
func New(views Inserter, geo CountryLookup, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		views:   views,
		geo:     geo,
		logger:  logger,
		timeout: DefaultTimeout,
	}
}

// Track records one view of path by visitorID. It returns immediately.
func (t *Tracker) Track(path, visitorID string) {
	t.track(path, visitorID, "")
}

func (t *Tracker) track(path, visitorID, ip string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.logger.Debug("tracker closed, dropping page view", "path", path)
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()

		vals := store.Values{
			"page_path":  path,
			"visitor_id": visitorID,
		}
		if t.geo != nil && ip != "" {
			vals["country_code"] = store.NullString(t.geo.Country(ip))
		}

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if _, err := t.views.Insert(ctx, vals); err != nil {
			t.logger.Error("failed to record page view", "error", err, "path", path, "category", "tracking")
		}
	}()
}

// Close stops accepting views and waits for in-flight writes.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}

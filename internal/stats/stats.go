// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package stats computes the dashboard's overview numbers and the page view
// chart.
package stats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/pesantren-go/internal/store"
)

// Counter counts rows matching a query.
type Counter interface {
	Count(ctx context.Context, q store.Query) (int64, error)
}

// Summary holds the four overview cards.
type Summary struct {
	Activities int64
	Photos     int64
	ViewsToday int64
	ViewsTotal int64
}

// DayCount is the number of page views on one local day.
type DayCount struct {
	Day   time.Time
	Views int64
}

// Service reads statistics from the resource tables.
type Service struct {
	activities Counter
	gallery    Counter
	views      Counter
	loc        *time.Location
	now        func() time.Time
}

// New creates a Service. Days start at midnight in loc (time.Local when nil).
func New(activities, gallery, views Counter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		activities: activities,
		gallery:    gallery,
		views:      views,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *Service) midnight(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// Summary counts activities, photos, today's views and all views.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	today := s.midnight(s.now()).UTC()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sum.Activities, err = s.activities.Count(ctx, store.All())
		return err
	})
	g.Go(func() (err error) {
		sum.Photos, err = s.gallery.Count(ctx, store.All())
		return err
	})
	g.Go(func() (err error) {
		sum.ViewsToday, err = s.views.Count(ctx, store.All().Gte("created_at", today))
		return err
	})
	g.Go(func() (err error) {
		sum.ViewsTotal, err = s.views.Count(ctx, store.All())
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("counting dashboard stats: %w", err)
	}
	return sum, nil
}

// Daily returns view counts for the last n days, oldest first, ending today.
func (s *Service) Daily(ctx context.Context, n int) ([]DayCount, error) {
	if n <= 0 {
		return nil, nil
	}
	today := s.midnight(s.now())
	out := make([]DayCount, n)
	for i := range out {
		start := today.AddDate(0, 0, i-n+1)
		end := start.AddDate(0, 0, 1)
		c, err := s.views.Count(ctx, store.All().Gte("created_at", start.UTC()).Lt("created_at", end.UTC()))
		if err != nil {
			return nil, fmt.Errorf("counting views for %s: %w", start.Format(time.DateOnly), err)
		}
		out[i] = DayCount{Day: start, Views: c}
	}
	return out, nil
}

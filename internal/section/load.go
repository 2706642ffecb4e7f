// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package section

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/store"
)

// Reader is the read side of a resource table.
type Reader[T any] interface {
	Select(ctx context.Context, q store.Query) ([]T, error)
	MaybeSingle(ctx context.Context, q store.Query) (*T, error)
}

// Sources are the resources the public site reads.
type Sources struct {
	Profile    Reader[model.Profile]
	Activities Reader[model.Activity]
	Gallery    Reader[model.GalleryItem]
	Contact    Reader[model.ContactInfo]
}

// loadSingleton reads the first row of a singleton resource.
func loadSingleton[T any](ctx context.Context, r Reader[T], name string) Result[T] {
	row, err := r.MaybeSingle(ctx, store.All().Limit(1))
	if err != nil {
		slog.Error("failed to load section", "section", name, "error", err, "category", model.EventCategoryContent)
		return FetchFailed[T](err)
	}
	if row == nil {
		return Empty[T]()
	}
	return Loaded(*row)
}

func loadList[T any](ctx context.Context, r Reader[T], name string, q store.Query) Result[[]T] {
	rows, err := r.Select(ctx, q)
	if err != nil {
		slog.Error("failed to load section", "section", name, "error", err, "category", model.EventCategoryContent)
		return FetchFailed[[]T](err)
	}
	if len(rows) == 0 {
		return Empty[[]T]()
	}
	return Loaded(rows)
}

// LoadProfile reads the singleton profile; the first row wins.
func LoadProfile(ctx context.Context, r Reader[model.Profile]) Result[model.Profile] {
	return loadSingleton(ctx, r, "profile")
}

// LoadContact reads the singleton contact block.
func LoadContact(ctx context.Context, r Reader[model.ContactInfo]) Result[model.ContactInfo] {
	return loadSingleton(ctx, r, "contact")
}

// LoadActivities reads every activity ordered by category, then title.
func LoadActivities(ctx context.Context, r Reader[model.Activity]) Result[[]model.Activity] {
	return loadList(ctx, r, "activities", store.All().Order("category", true).Order("title", true))
}

// LoadGallery reads every gallery item, newest first.
func LoadGallery(ctx context.Context, r Reader[model.GalleryItem]) Result[[]model.GalleryItem] {
	return loadList(ctx, r, "gallery", store.All().Order("created_at", false))
}

// Home is the composed public page.
type Home struct {
	Profile    ProfileView
	Activities ActivitiesView
	Gallery    GalleryView
	Contact    ContactView
}

// LoadHome runs the four section loads concurrently. A failed load only
// affects its own section.
func LoadHome(ctx context.Context, src Sources) Home {
	var (
		profile    Result[model.Profile]
		activities Result[[]model.Activity]
		gallery    Result[[]model.GalleryItem]
		contact    Result[model.ContactInfo]
	)

	var g errgroup.Group
	g.Go(func() error { profile = LoadProfile(ctx, src.Profile); return nil })
	g.Go(func() error { activities = LoadActivities(ctx, src.Activities); return nil })
	g.Go(func() error { gallery = LoadGallery(ctx, src.Gallery); return nil })
	g.Go(func() error { contact = LoadContact(ctx, src.Contact); return nil })
	_ = g.Wait()

	return Home{
		Profile:    BuildProfile(profile),
		Activities: BuildActivities(activities),
		Gallery:    BuildGallery(gallery),
		Contact:    BuildContact(contact),
	}
}

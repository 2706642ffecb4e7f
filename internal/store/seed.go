// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/pesantren-go/internal/model"
)

// Initial content for the singleton rows.
const (
	SeedProfileName  = "Pondok Pesantren Al-Hidayah"
	SeedShortHistory = "Pesantren kami telah berdiri sejak puluhan tahun yang lalu dengan misi mencetak generasi Islam yang berkualitas."
	SeedVision       = "Menjadi lembaga pendidikan Islam terdepan yang mencetak generasi Qurani."
	SeedAddress      = "Jl. Pesantren No. 123, Kecamatan ABC, Kabupaten XYZ"
)

// SeedMission is the initial mission list.
var SeedMission = []string{"Menyelenggarakan pendidikan Islam berkualitas"}

// Seed creates the singleton profile and contact rows when they are missing.
// Existing rows are never modified.
func Seed(ctx context.Context, db DBTX, dialect Dialect) error {
	profiles := NewTable(db, dialect, ProfileSchema)
	n, err := profiles.Count(ctx, All())
	if err != nil {
		return fmt.Errorf("checking for profile: %w", err)
	}
	if n == 0 {
		mission, err := EncodeList(SeedMission)
		if err != nil {
			return fmt.Errorf("encoding mission: %w", err)
		}
		id, err := profiles.Insert(ctx, Values{
			"name":          SeedProfileName,
			"short_history": SeedShortHistory,
			"vision":        SeedVision,
			"mission":       mission,
		})
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		slog.Info("created profile row", "id", id, "category", model.EventCategoryContent)
	} else {
		slog.Info("profile row already exists, skipping seed")
	}

	contacts := NewTable(db, dialect, ContactSchema)
	n, err = contacts.Count(ctx, All())
	if err != nil {
		return fmt.Errorf("checking for contact: %w", err)
	}
	if n == 0 {
		id, err := contacts.Insert(ctx, Values{"address": SeedAddress})
		if err != nil {
			return fmt.Errorf("creating contact: %w", err)
		}
		slog.Info("created contact row", "id", id, "category", model.EventCategoryContent)
	} else {
		slog.Info("contact row already exists, skipping seed")
	}

	return nil
}

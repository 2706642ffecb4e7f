// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package manager

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/store"
)

// Action names guarded by the in-progress flag.
const (
	ActionSave   = "save"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionUpload = "upload"
)

// ProfileManager edits the singleton profile row.
type ProfileManager struct {
	inFlight
	table Table[model.Profile]
}

// NewProfileManager creates a ProfileManager.
func NewProfileManager(t Table[model.Profile]) *ProfileManager {
	return &ProfileManager{table: t}
}

// Load returns the profile row, or nil when it has not been seeded.
func (m *ProfileManager) Load(ctx context.Context) (*model.Profile, error) {
	p, err := m.table.MaybeSingle(ctx, store.All().Limit(1))
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}

// Save writes every editable field with one update by id.
func (m *ProfileManager) Save(ctx context.Context, p model.Profile) error {
	done, err := m.begin(ActionSave)
	if err != nil {
		return err
	}
	defer done()

	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		return ErrNotFound
	}
	if err := required("name", MsgNameRequired, p.Name); err != nil {
		return err
	}

	mission, err := store.EncodeList(p.Mission)
	if err != nil {
		return fmt.Errorf("encoding mission: %w", err)
	}
	if _, err := m.table.Update(ctx, store.Values{
		"name":          p.Name,
		"short_history": p.ShortHistory,
		"vision":        p.Vision,
		"mission":       mission,
	}, store.Where("id", p.ID)); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// AddMission appends a trimmed, non-empty item to the form state.
func AddMission(p *model.Profile, item string) bool {
	item = strings.TrimSpace(item)
	if item == "" {
		return false
	}
	p.Mission = append(p.Mission, item)
	return true
}

// RemoveMission drops the item at index from the form state.
func RemoveMission(p *model.Profile, index int) bool {
	if index < 0 || index >= len(p.Mission) {
		return false
	}
	p.Mission = slices.Delete(slices.Clone(p.Mission), index, index+1)
	return true
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/store"
)

// ActivityInput is the activity edit form.
type ActivityInput struct {
	Title       string
	Description string
	Category    string
	TimeInfo    string
}

// FromActivity fills the form from an existing row.
func FromActivity(a model.Activity) ActivityInput {
	return ActivityInput{
		Title:       a.Title,
		Description: a.Description,
		Category:    string(a.Category),
		TimeInfo:    a.TimeInfo,
	}
}

func (in ActivityInput) values() (store.Values, error) {
	title := strings.TrimSpace(in.Title)
	if err := required("title", MsgTitleRequired, title); err != nil {
		return nil, err
	}
	if _, ok := model.ParseCategory(in.Category); !ok {
		return nil, &FieldError{Field: "category", Key: MsgInvalidCategory}
	}
	return store.Values{
		"title":       title,
		"description": store.NullString(strings.TrimSpace(in.Description)),
		"category":    in.Category,
		"time_info":   store.NullString(strings.TrimSpace(in.TimeInfo)),
	}, nil
}

// ActivitiesManager creates, edits and deletes activities.
type ActivitiesManager struct {
	inFlight
	table Table[model.Activity]
}

// NewActivitiesManager creates an ActivitiesManager.
func NewActivitiesManager(t Table[model.Activity]) *ActivitiesManager {
	return &ActivitiesManager{table: t}
}

// List returns every activity ordered by category, then title.
func (m *ActivitiesManager) List(ctx context.Context) ([]model.Activity, error) {
	rows, err := m.table.Select(ctx, store.All().Order("category", true).Order("title", true))
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return rows, nil
}

// Get returns one activity.
func (m *ActivitiesManager) Get(ctx context.Context, id string) (*model.Activity, error) {
	a, err := m.table.MaybeSingle(ctx, store.Where("id", id))
	if err != nil {
		return nil, fmt.Errorf("loading activity: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// Create inserts a new activity and returns its id.
func (m *ActivitiesManager) Create(ctx context.Context, in ActivityInput) (string, error) {
	done, err := m.begin(ActionCreate)
	if err != nil {
		return "", err
	}
	defer done()

	vals, err := in.values()
	if err != nil {
		return "", err
	}
	id, err := m.table.Insert(ctx, vals)
	if err != nil {
		return "", fmt.Errorf("creating activity: %w", err)
	}
	return id, nil
}

// Update replaces the editable fields of activity id.
func (m *ActivitiesManager) Update(ctx context.Context, id string, in ActivityInput) error {
	done, err := m.begin(ActionUpdate)
	if err != nil {
		return err
	}
	defer done()

	vals, err := in.values()
	if err != nil {
		return err
	}
	n, err := m.table.Update(ctx, vals, store.Where("id", id))
	if err != nil {
		return fmt.Errorf("updating activity: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes activity id once the user confirms.
func (m *ActivitiesManager) Delete(ctx context.Context, id string, confirm Confirm) error {
	if confirm == nil || !confirm(ConfirmDeleteActivity) {
		return ErrNotConfirmed
	}
	done, err := m.begin(ActionDelete)
	if err != nil {
		return err
	}
	defer done()

	n, err := m.table.Delete(ctx, store.Where("id", id))
	if err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

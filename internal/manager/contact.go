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

// ContactManager edits the singleton contact row.
type ContactManager struct {
	inFlight
	table Table[model.ContactInfo]
}

// NewContactManager creates a ContactManager.
func NewContactManager(t Table[model.ContactInfo]) *ContactManager {
	return &ContactManager{table: t}
}

// Load returns the contact row, or nil when it has not been seeded.
func (m *ContactManager) Load(ctx context.Context) (*model.ContactInfo, error) {
	c, err := m.table.MaybeSingle(ctx, store.All().Limit(1))
	if err != nil {
		return nil, fmt.Errorf("loading contact: %w", err)
	}
	return c, nil
}

// Save writes every editable field with one update by id. Optional fields
// left blank are stored as NULL.
func (m *ContactManager) Save(ctx context.Context, c model.ContactInfo) error {
	done, err := m.begin(ActionSave)
	if err != nil {
		return err
	}
	defer done()

	if c.ID == "" {
		return ErrNotFound
	}
	c.Address = strings.TrimSpace(c.Address)
	if err := required("address", MsgAddressRequired, c.Address); err != nil {
		return err
	}

	if _, err := m.table.Update(ctx, store.Values{
		"address":    c.Address,
		"whatsapp":   store.NullString(strings.TrimSpace(c.WhatsApp)),
		"email":      store.NullString(strings.TrimSpace(c.Email)),
		"maps_embed": store.NullString(strings.TrimSpace(c.MapsEmbed)),
	}, store.Where("id", c.ID)); err != nil {
		return fmt.Errorf("saving contact: %w", err)
	}
	return nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Profile is the singleton description of the pesantren.
type Profile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ShortHistory string    `json:"short_history"`
	Vision       string    `json:"vision"`
	Mission      []string  `json:"mission"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Activity is a recurring or yearly activity shown on the public site.
type Activity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    Category  `json:"category"`
	TimeInfo    string    `json:"time_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GalleryItem is a photo whose ImageURL points at an uploaded storage object.
type GalleryItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ImageURL    string    `json:"image_url"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContactInfo is the singleton contact block.
type ContactInfo struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	WhatsApp  string    `json:"whatsapp,omitempty"`
	Email     string    `json:"email,omitempty"`
	MapsEmbed string    `json:"maps_embed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageView is one append-only analytics record.
type PageView struct {
	ID          string    `json:"id"`
	PagePath    string    `json:"page_path"`
	VisitorID   string    `json:"visitor_id"`
	CountryCode string    `json:"country_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

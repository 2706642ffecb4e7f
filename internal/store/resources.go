// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/olegiv/pesantren-go/internal/model"
)

// Table names.
const (
	TableProfile   = "pesantren_profile"
	TableActivity  = "activities"
	TableGallery   = "gallery"
	TableContact   = "contact_info"
	TablePageViews = "page_views"
	TableUserRoles = "user_roles"
	TableUsers     = "users"
	TableEventLog  = "event_log"
)

// ProfileSchema maps pesantren_profile. Mission is stored as a JSON array.
var ProfileSchema = Schema[model.Profile]{
	Name:    TableProfile,
	Columns: []string{"id", "name", "short_history", "vision", "mission", "created_at", "updated_at"},
	Scan: func(s RowScanner) (model.Profile, error) {
		var p model.Profile
		var history, vision, mission sql.NullString
		if err := s.Scan(&p.ID, &p.Name, &history, &vision, &mission, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return p, err
		}
		p.ShortHistory = history.String
		p.Vision = vision.String
		list, err := DecodeList(mission.String)
		if err != nil {
			return p, fmt.Errorf("decoding mission: %w", err)
		}
		p.Mission = list
		return p, nil
	},
}

// ActivitySchema maps activities.
var ActivitySchema = Schema[model.Activity]{
	Name:    TableActivity,
	Columns: []string{"id", "title", "description", "category", "time_info", "created_at", "updated_at"},
	Scan: func(s RowScanner) (model.Activity, error) {
		var a model.Activity
		var desc, timeInfo sql.NullString
		var category string
		if err := s.Scan(&a.ID, &a.Title, &desc, &category, &timeInfo, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return a, err
		}
		a.Description = desc.String
		a.Category = model.Category(category)
		a.TimeInfo = timeInfo.String
		return a, nil
	},
}

// GallerySchema maps gallery.
var GallerySchema = Schema[model.GalleryItem]{
	Name:    TableGallery,
	Columns: []string{"id", "title", "image_url", "description", "created_at", "updated_at"},
	Scan: func(s RowScanner) (model.GalleryItem, error) {
		var g model.GalleryItem
		var desc sql.NullString
		if err := s.Scan(&g.ID, &g.Title, &g.ImageURL, &desc, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return g, err
		}
		g.Description = desc.String
		return g, nil
	},
}

// ContactSchema maps contact_info.
var ContactSchema = Schema[model.ContactInfo]{
	Name:    TableContact,
	Columns: []string{"id", "address", "whatsapp", "email", "maps_embed", "created_at", "updated_at"},
	Scan: func(s RowScanner) (model.ContactInfo, error) {
		var c model.ContactInfo
		var wa, email, maps sql.NullString
		if err := s.Scan(&c.ID, &c.Address, &wa, &email, &maps, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return c, err
		}
		c.WhatsApp = wa.String
		c.Email = email.String
		c.MapsEmbed = maps.String
		return c, nil
	},
}

// PageViewSchema maps page_views.
var PageViewSchema = Schema[model.PageView]{
	Name:    TablePageViews,
	Columns: []string{"id", "page_path", "visitor_id", "country_code", "created_at"},
	Scan: func(s RowScanner) (model.PageView, error) {
		var v model.PageView
		var country sql.NullString
		if err := s.Scan(&v.ID, &v.PagePath, &v.VisitorID, &country, &v.CreatedAt); err != nil {
			return v, err
		}
		v.CountryCode = country.String
		return v, nil
	},
}

// UserRoleSchema maps user_roles.
var UserRoleSchema = Schema[model.UserRole]{
	Name:    TableUserRoles,
	Columns: []string{"id", "user_id", "role", "created_at"},
	Scan: func(s RowScanner) (model.UserRole, error) {
		var r model.UserRole
		err := s.Scan(&r.ID, &r.UserID, &r.Role, &r.CreatedAt)
		return r, err
	},
}

// UserSchema maps users.
var UserSchema = Schema[model.User]{
	Name:    TableUsers,
	Columns: []string{"id", "email", "password_hash", "created_at", "last_sign_in_at"},
	Scan: func(s RowScanner) (model.User, error) {
		var u model.User
		err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastSignInAt)
		return u, err
	},
}

// EventSchema maps event_log.
var EventSchema = Schema[model.Event]{
	Name:    TableEventLog,
	Columns: []string{"id", "level", "category", "message", "metadata", "created_at"},
	Scan: func(s RowScanner) (model.Event, error) {
		var e model.Event
		err := s.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Metadata, &e.CreatedAt)
		return e, err
	},
}

// EncodeList serializes a string list for storage. A nil list is stored as [].
func EncodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeList parses a stored string list. An empty value yields nil.
func DecodeList(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, err
	}
	return list, nil
}

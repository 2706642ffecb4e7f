// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared by the public site, the
// admin dashboard and the data client: profile, activities, gallery,
// contact, page views and the admin role records.
package model

import (
	"database/sql"
	"time"
)

// RoleAdmin is the role that grants dashboard access.
const RoleAdmin = "admin"

// User is an account of the auth subsystem.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	CreatedAt    time.Time    `json:"created_at"`
	LastSignInAt sql.NullTime `json:"last_sign_in_at,omitempty"`
}

// UserRole asserts that a user holds a role. A row with Role == RoleAdmin
// grants dashboard access.
type UserRole struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin returns true if the record grants the admin role.
func (r *UserRole) IsAdmin() bool {
	return r != nil && r.Role == RoleAdmin
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Category groups activities by how often they happen.
type Category string

// Activity categories. The stored values are fixed.
const (
	CategoryDaily  Category = "harian"
	CategoryWeekly Category = "mingguan"
	CategoryYearly Category = "tahunan"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryDaily, CategoryWeekly, CategoryYearly}

var categoryLabels = map[Category]string{
	CategoryDaily:  "Harian",
	CategoryWeekly: "Mingguan",
	CategoryYearly: "Tahunan",
}

// ParseCategory returns the category for s and whether it is one of the fixed set.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.Valid()
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display label, or the raw value for unknown categories.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}

// FilterByCategory returns the activities in category c, preserving order.
// A category outside the fixed set yields an empty, non-nil slice.
func FilterByCategory(items []Activity, c Category) []Activity {
	out := make([]Activity, 0, len(items))
	if !c.Valid() {
		return out
	}
	for _, a := range items {
		if a.Category == c {
			out = append(out, a)
		}
	}
	return out
}

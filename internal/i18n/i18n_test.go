// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package i18n

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for _, lang := range SupportedLanguages {
		if TranslationCount(lang) == 0 {
			t.Errorf("no translations loaded for %s", lang)
		}
	}
}

func TestT(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	tests := []struct {
		lang     string
		key      string
		args     []any
		expected string
	}{
		{"id", "site.nav.home", nil, "Beranda"},
		{"en", "site.nav.home", nil, "Home"},
		{"id", "manager.activity.created", nil, "Kegiatan berhasil ditambahkan"},
		{"id", "manager.error.file_too_large", nil, "Ukuran file maksimal 5MB"},
		{"id", "login.denied_message", nil, "Anda tidak memiliki akses admin."},
		{"en", "admin.signed_in_as", []any{"admin@pesantren.id"}, "Signed in as admin@pesantren.id"},
		{"id", "login.error.attempts_remaining", []any{2}, "Sisa percobaan: 2."},
		// Unknown language falls back to Indonesian
		{"de", "site.nav.contact", nil, "Kontak"},
		// Missing key is returned as is
		{"en", "nonexistent.key", nil, "nonexistent.key"},
	}

	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.key, func(t *testing.T) {
			if got := T(tt.lang, tt.key, tt.args...); got != tt.expected {
				t.Errorf("T(%q, %q) = %q, want %q", tt.lang, tt.key, got, tt.expected)
			}
		})
	}
}

func TestMatchLanguage(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	tests := []struct {
		accept string
		want   string
	}{
		{"", "id"},
		{"id", "id"},
		{"id-ID,id;q=0.9", "id"},
		{"en-US,en;q=0.9", "en"},
		{"en", "en"},
		{"ja", "id"},
		{"not a language tag!", "id"},
	}

	for _, tt := range tests {
		if got := MatchLanguage(tt.accept); got != tt.want {
			t.Errorf("MatchLanguage(%q) = %q, want %q", tt.accept, got, tt.want)
		}
	}
}

func TestIsSupported(t *testing.T) {
	for lang, want := range map[string]bool{"id": true, "EN": true, "ru": false, "": false} {
		if got := IsSupported(lang); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", lang, got, want)
		}
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	idKeys := Keys("id")
	enKeys := Keys("en")
	sort.Strings(idKeys)
	sort.Strings(enKeys)

	if strings.Join(idKeys, ",") != strings.Join(enKeys, ",") {
		t.Errorf("id has %d keys, en has %d; the key sets differ", len(idKeys), len(enKeys))
	}
}

func TestLocaleFilesAreValid(t *testing.T) {
	for _, lang := range SupportedLanguages {
		data, err := localesFS.ReadFile("locales/" + lang + "/messages.json")
		if err != nil {
			t.Fatalf("reading %s: %v", lang, err)
		}

		var f MessageFile
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("parsing %s: %v", lang, err)
		}
		if f.Language != lang {
			t.Errorf("%s: language = %q", lang, f.Language)
		}

		seen := make(map[string]bool)
		for _, m := range f.Messages {
			if m.ID == "" || m.Translation == "" {
				t.Errorf("%s: empty message %+v", lang, m)
			}
			if seen[m.ID] {
				t.Errorf("%s: duplicate id %s", lang, m.ID)
			}
			seen[m.ID] = true
		}
	}
}

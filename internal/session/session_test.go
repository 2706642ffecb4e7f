// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/sqlite3store"

	"github.com/olegiv/pesantren-go/internal/store"
	"github.com/olegiv/pesantren-go/internal/testutil"
)

func TestNew_DevMode(t *testing.T) {
	sm := New(testutil.TestDB(t), store.DialectSQLite, true)

	if sm.Cookie.Secure {
		t.Error("expected Secure=false in dev mode")
	}
	if sm.Cookie.Name != DevCookieName {
		t.Errorf("Cookie.Name = %q, want %q", sm.Cookie.Name, DevCookieName)
	}
	if _, ok := sm.Store.(*sqlite3store.SQLite3Store); !ok {
		t.Errorf("Store = %T, want *sqlite3store.SQLite3Store", sm.Store)
	}
}

func TestNew_ProductionMode(t *testing.T) {
	sm := New(testutil.TestDB(t), store.DialectSQLite, false)

	if !sm.Cookie.Secure {
		t.Error("expected Secure=true in production")
	}
	if sm.Cookie.Name != CookieName {
		t.Errorf("Cookie.Name = %q, want %q", sm.Cookie.Name, CookieName)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected HttpOnly=true")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", sm.Cookie.SameSite)
	}
	if sm.Lifetime != Lifetime {
		t.Errorf("Lifetime = %v, want %v", sm.Lifetime, Lifetime)
	}
}

func TestSignInAndClear(t *testing.T) {
	sm := New(testutil.TestDB(t), store.DialectSQLite, true)

	var cookie *http.Cookie
	signIn := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), KeyFlash, "kept")
		if err := SignIn(r.Context(), sm, "tok-1"); err != nil {
			t.Errorf("SignIn: %v", err)
		}
	}))
	rec := httptest.NewRecorder()
	signIn.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	for _, c := range rec.Result().Cookies() {
		if c.Name == DevCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie set")
	}

	check := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := AuthToken(sm, r); got != "tok-1" {
			t.Errorf("AuthToken = %q, want tok-1", got)
		}
		Clear(sm, r)
		if got := AuthToken(sm, r); got != "" {
			t.Errorf("AuthToken after Clear = %q", got)
		}
		if got := sm.GetString(r.Context(), KeyFlash); got != "kept" {
			t.Errorf("flash after Clear = %q, want kept", got)
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	check.ServeHTTP(httptest.NewRecorder(), req)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var testAuthKey = []byte("12345678901234567890123456789012")

func TestDefaultCSRFConfig(t *testing.T) {
	dev := DefaultCSRFConfig(testAuthKey, true, "0.0.0.0:9000")
	want := map[string]bool{"localhost:8080": true, "127.0.0.1:8080": true, "0.0.0.0:9000": true}
	if len(dev.TrustedOrigins) != len(want) {
		t.Fatalf("TrustedOrigins = %v", dev.TrustedOrigins)
	}
	for _, o := range dev.TrustedOrigins {
		if !want[o] {
			t.Errorf("unexpected TrustedOrigin %q", o)
		}
	}

	if prod := DefaultCSRFConfig(testAuthKey, false, "example.com:443"); len(prod.TrustedOrigins) != 0 {
		t.Errorf("production TrustedOrigins = %v, want none", prod.TrustedOrigins)
	}
}

func TestCSRF_RejectsCrossSitePost(t *testing.T) {
	called := false
	h := CSRF(DefaultCSRFConfig(testAuthKey, false, ""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "https://pesantren.example/adminq", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden || called {
		t.Errorf("cross-site POST: status %d, handler called %v", rec.Code, called)
	}
}

func TestCSRF_AllowsSameOriginPostAndGet(t *testing.T) {
	h := CSRF(DefaultCSRFConfig(testAuthKey, false, ""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "https://pesantren.example/adminq", nil)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("same-origin POST status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "https://pesantren.example/", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("cross-site GET status = %d", rec.Code)
	}
}

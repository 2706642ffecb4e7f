// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLoginProtection(t *testing.T, maxAttempts int, lockout, window time.Duration) *LoginProtection {
	t.Helper()
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   lockout,
		AttemptWindow:     window,
	})
	t.Cleanup(lp.Close)
	return lp
}

func TestNewLoginProtection_Defaults(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{})
	defer lp.Close()

	if want := DefaultLoginProtectionConfig(); lp.cfg != want {
		t.Errorf("cfg = %+v, want %+v", lp.cfg, want)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		lockouts int
		want     time.Duration
	}{
		{0, 15 * time.Minute},
		{1, 30 * time.Minute},
		{3, 2 * time.Hour},
		{10, maxLockout},
	}
	for _, tt := range tests {
		if got := backoff(15*time.Minute, tt.lockouts); got != tt.want {
			t.Errorf("backoff(15m, %d) = %v, want %v", tt.lockouts, got, tt.want)
		}
	}
}

func TestLoginProtection_SweepDropsExpired(t *testing.T) {
	lp := newTestLoginProtection(t, 5, time.Minute, time.Minute)
	lp.RecordFailure("admin@pesantren.id")

	lp.sweep(time.Now())
	if got := lp.AttemptsLeft("admin@pesantren.id"); got != 4 {
		t.Fatalf("AttemptsLeft = %d, fresh record should survive the sweep", got)
	}

	lp.sweep(time.Now().Add(2 * time.Minute))
	lp.mu.RLock()
	n := len(lp.accounts)
	lp.mu.RUnlock()
	if n != 0 {
		t.Errorf("accounts = %d after sweeping past the window, want 0", n)
	}
}

func TestLoginProtection_LocksAfterMaxFailures(t *testing.T) {
	lp := newTestLoginProtection(t, 3, time.Minute, time.Minute)
	email := "admin@pesantren.id"

	if locked, _ := lp.Locked(email); locked {
		t.Fatal("account locked before any failure")
	}
	for i := 0; i < 2; i++ {
		if locked, _ := lp.RecordFailure(email); locked {
			t.Fatalf("locked after %d failures", i+1)
		}
	}
	if got := lp.AttemptsLeft(email); got != 1 {
		t.Errorf("AttemptsLeft = %d, want 1", got)
	}

	locked, d := lp.RecordFailure(email)
	if !locked || d != time.Minute {
		t.Fatalf("RecordFailure = (%v, %v), want (true, 1m)", locked, d)
	}
	if locked, remaining := lp.Locked(email); !locked || remaining <= 0 {
		t.Errorf("Locked = (%v, %v)", locked, remaining)
	}
}

func TestLoginProtection_EmailIsNormalized(t *testing.T) {
	lp := newTestLoginProtection(t, 2, time.Minute, time.Minute)

	lp.RecordFailure("Admin@Pesantren.id")
	lp.RecordFailure(" admin@pesantren.id ")

	if locked, _ := lp.Locked("admin@pesantren.id"); !locked {
		t.Error("differently cased emails should share one lockout counter")
	}
}

func TestLoginProtection_SuccessClearsFailures(t *testing.T) {
	lp := newTestLoginProtection(t, 3, time.Minute, time.Minute)
	email := "admin@pesantren.id"

	lp.RecordFailure(email)
	lp.RecordFailure(email)
	lp.Reset(email)

	if got := lp.AttemptsLeft(email); got != 3 {
		t.Errorf("AttemptsLeft after success = %d, want 3", got)
	}
}

func TestLoginProtection_ExponentialBackoff(t *testing.T) {
	lp := newTestLoginProtection(t, 2, 50*time.Millisecond, time.Minute)
	email := "admin@pesantren.id"

	lp.RecordFailure(email)
	_, first := lp.RecordFailure(email)

	time.Sleep(first + 10*time.Millisecond)

	lp.RecordFailure(email)
	_, second := lp.RecordFailure(email)
	if second != 2*first {
		t.Errorf("second lockout = %v, want %v", second, 2*first)
	}
}

func TestLoginProtection_WindowReset(t *testing.T) {
	lp := newTestLoginProtection(t, 5, time.Minute, 50*time.Millisecond)
	email := "admin@pesantren.id"

	lp.RecordFailure(email)
	if got := lp.AttemptsLeft(email); got != 4 {
		t.Errorf("AttemptsLeft = %d, want 4", got)
	}

	time.Sleep(80 * time.Millisecond)

	if got := lp.AttemptsLeft(email); got != 5 {
		t.Errorf("AttemptsLeft after window = %d, want 5", got)
	}
}

func TestLoginProtection_Middleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 2})
	defer lp.Close()

	h := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(method, remote string) int {
		req := httptest.NewRequest(method, "/adminq", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 5; i++ {
		if code := serve(http.MethodGet, "10.0.0.1:1000"); code != http.StatusOK {
			t.Fatalf("GET %d status = %d, GET must not be limited", i, code)
		}
	}
	if serve(http.MethodPost, "10.0.0.1:1000") != http.StatusOK || serve(http.MethodPost, "10.0.0.1:1001") != http.StatusOK {
		t.Fatal("posts within burst were limited")
	}
	if code := serve(http.MethodPost, "10.0.0.1:1002"); code != http.StatusTooManyRequests {
		t.Errorf("third POST status = %d, want 429", code)
	}
	if code := serve(http.MethodPost, "10.0.0.2:1000"); code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"203.0.113.9:5555", "203.0.113.9"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"203.0.113.9", "203.0.113.9"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if got := ClientIP(req); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

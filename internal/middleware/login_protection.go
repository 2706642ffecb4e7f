// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/pesantren-go/internal/i18n"
)

const (
	maxLockout        = 24 * time.Hour
	maxTrackedIPs     = 10000
	protectionSweepAt = 10 * time.Minute
)

// LoginProtection throttles sign-in posts per IP and locks an email out
// after repeated wrong passwords.
type LoginProtection struct {
	ips *limiterCache[string]

	mu       sync.RWMutex
	accounts map[string]*signInRecord

	cfg LoginProtectionConfig

	stop     chan struct{}
	stopOnce sync.Once
}

type signInRecord struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtectionConfig configures LoginProtection. Zero values take the
// defaults of DefaultLoginProtectionConfig.
type LoginProtectionConfig struct {
	IPRateLimit       float64       // Sign-in posts per second per IP
	IPBurst           int
	MaxFailedAttempts int           // Failures within AttemptWindow before a lockout
	LockoutDuration   time.Duration // Doubles with every further lockout, capped at 24h
	AttemptWindow     time.Duration
}

// DefaultLoginProtectionConfig allows a burst of 5 posts, then one every two
// seconds, and locks an email for 15 minutes after 5 failures.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

func (c LoginProtectionConfig) withDefaults() LoginProtectionConfig {
	d := DefaultLoginProtectionConfig()
	if c.IPRateLimit <= 0 {
		c.IPRateLimit = d.IPRateLimit
	}
	if c.IPBurst <= 0 {
		c.IPBurst = d.IPBurst
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = d.AttemptWindow
	}
	return c
}

// NewLoginProtection starts a LoginProtection. Call Close to stop its
// sweeper goroutine.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		ips:      newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		accounts: make(map[string]*signInRecord),
		cfg:      cfg,
		stop:     make(chan struct{}),
	}
	go lp.sweepLoop()
	return lp
}

// Close stops the sweeper goroutine.
func (lp *LoginProtection) Close() {
	lp.stopOnce.Do(func() { close(lp.stop) })
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AllowIP reports whether another sign-in post from ip fits its rate.
func (lp *LoginProtection) AllowIP(ip string) bool {
	return lp.ips.get(ip).Allow()
}

// Locked reports whether email is locked out and for how much longer.
func (lp *LoginProtection) Locked(email string) (bool, time.Duration) {
	lp.mu.RLock()
	rec := lp.accounts[accountKey(email)]
	lp.mu.RUnlock()

	if rec == nil {
		return false, 0
	}
	if left := time.Until(rec.lockedUntil); left > 0 {
		return true, left
	}
	return false, 0
}

// RecordFailure counts a wrong password for email. When the failure reaches
// the limit the email is locked and the lockout length is returned.
func (lp *LoginProtection) RecordFailure(email string) (bool, time.Duration) {
	key := accountKey(email)
	now := time.Now()

	lp.mu.Lock()
	defer lp.mu.Unlock()

	rec := lp.accounts[key]
	if rec == nil {
		rec = &signInRecord{windowStart: now}
		lp.accounts[key] = rec
	}
	if now.Sub(rec.windowStart) > lp.cfg.AttemptWindow {
		rec.failures = 0
		rec.windowStart = now
	}
	rec.failures++
	slog.Debug("sign-in failure recorded", "email", key, "failures", rec.failures)

	if rec.failures < lp.cfg.MaxFailedAttempts {
		return false, 0
	}

	d := backoff(lp.cfg.LockoutDuration, rec.lockouts)
	rec.lockedUntil = now.Add(d)
	rec.lockouts++
	rec.failures = 0

	slog.Warn("account locked after repeated sign-in failures",
		"email", key,
		"lockouts", rec.lockouts,
		"duration", d,
		"category", "security",
	)
	return true, d
}

// backoff doubles base once per earlier lockout, up to maxLockout.
func backoff(base time.Duration, lockouts int) time.Duration {
	d := base
	for range lockouts {
		d *= 2
		if d >= maxLockout {
			return maxLockout
		}
	}
	return d
}

// Reset forgets every failure recorded for email.
func (lp *LoginProtection) Reset(email string) {
	lp.mu.Lock()
	delete(lp.accounts, accountKey(email))
	lp.mu.Unlock()
}

// AttemptsLeft returns how many failures email may still make before it is
// locked.
func (lp *LoginProtection) AttemptsLeft(email string) int {
	lp.mu.RLock()
	rec := lp.accounts[accountKey(email)]
	lp.mu.RUnlock()

	if rec == nil || time.Since(rec.windowStart) > lp.cfg.AttemptWindow {
		return lp.cfg.MaxFailedAttempts
	}
	return max(lp.cfg.MaxFailedAttempts-rec.failures, 0)
}

func (lp *LoginProtection) sweepLoop() {
	ticker := time.NewTicker(protectionSweepAt)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lp.sweep(time.Now())
		case <-lp.stop:
			return
		}
	}
}

// sweep drops records whose lockout and failure window have both passed.
func (lp *LoginProtection) sweep(now time.Time) {
	if lp.ips.clearIfExceeds(maxTrackedIPs) {
		slog.Info("cleared sign-in rate limiters", "limit", maxTrackedIPs)
	}

	lp.mu.Lock()
	defer lp.mu.Unlock()
	for key, rec := range lp.accounts {
		if now.After(rec.lockedUntil) && now.Sub(rec.windowStart) > lp.cfg.AttemptWindow {
			delete(lp.accounts, key)
		}
	}
}

// Middleware rate limits sign-in posts per client IP. Other methods pass.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if !lp.AllowIP(ip) {
				slog.Warn("sign-in rate limit exceeded", "ip", ip, "category", "security")
				http.Error(w, i18n.T(GetLang(r), "login.rate_limited"), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of RemoteAddr. chi's RealIP middleware has
// already replaced it with the proxy-supplied address when one is trusted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

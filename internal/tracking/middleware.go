// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tracking

import (
	"net"
	"net/http"
	"strings"

	"github.com/mileusna/useragent"

	"github.com/olegiv/pesantren-go/internal/visitor"
)

// MiddlewareOptions configures which requests are tracked.
type MiddlewareOptions struct {
	// AdminPath is excluded together with everything below it.
	AdminPath string
	// ExcludePaths are extra path prefixes that are never tracked.
	ExcludePaths []string
	// SecureCookie marks the visitor cookie Secure.
	SecureCookie bool
}

var staticPrefixes = []string{
	"/static/",
	"/storage/",
	"/favicon.",
	"/robots.txt",
	"/.well-known/",
	"/health",
}

var staticExtensions = []string{
	".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico",
	".woff", ".woff2", ".ttf", ".xml", ".json", ".txt", ".map",
}

// statusRecorder captures the response status.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.status = http.StatusOK
		rw.wroteHeader = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware tracks successful page GETs. The visitor identifier is resolved
// by visitor.Middleware before the handler runs and is available through
// visitor.FromContext.
func (t *Tracker) Middleware(opts MiddlewareOptions) func(http.Handler) http.Handler {
	withVisitor := visitor.Middleware(opts.SecureCookie)
	return func(next http.Handler) http.Handler {
		record := withVisitor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status != http.StatusOK {
				t.logger.Debug("skipping non-200 page view", "path", r.URL.Path, "status", rw.status)
				return
			}
			t.track(r.URL.Path, visitor.FromContext(r.Context()), clientIP(r))
		}))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !shouldTrack(r, opts) {
				next.ServeHTTP(w, r)
				return
			}
			if useragent.Parse(r.UserAgent()).Bot {
				t.logger.Debug("skipping bot page view", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}
			record.ServeHTTP(w, r)
		})
	}
}

func shouldTrack(r *http.Request, opts MiddlewareOptions) bool {
	if r.Method != http.MethodGet {
		return false
	}
	path := r.URL.Path

	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	lower := strings.ToLower(path)
	for _, ext := range staticExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	if opts.AdminPath != "" && (path == opts.AdminPath || strings.HasPrefix(path, opts.AdminPath+"/")) {
		return false
	}
	for _, prefix := range opts.ExcludePaths {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// clientIP returns the host part of RemoteAddr. Proxy headers are applied
// upstream by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}

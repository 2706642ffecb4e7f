// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package visitor keeps the random identifier that distinguishes browser
// profiles in page view analytics. The identifier is created on first
// access and never cleared by the application.
package visitor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Key is the storage key of the visitor identifier.
const Key = "visitor_id"

// CookieMaxAge is the longest lifetime browsers accept for a cookie.
const CookieMaxAge = 400 * 24 * time.Hour

// ErrMissing is returned by Store.Get when the key is absent.
var ErrMissing = errors.New("visitor: key not set")

// Store is persistent client-side key/value storage.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// GetOrCreate returns the stored identifier, creating and persisting a new
// one when it is absent. A failed or malformed read counts as absence, and a
// failed write still yields a usable identifier for this call.
func GetOrCreate(s Store) string {
	if v, err := s.Get(Key); err == nil {
		if _, perr := uuid.Parse(v); perr == nil {
			return v
		}
	}
	id := uuid.NewString()
	_ = s.Set(Key, id)
	return id
}

// CookieStore persists values as long-lived cookies on the response.
type CookieStore struct {
	r      *http.Request
	w      http.ResponseWriter
	secure bool
	set    map[string]string
}

// NewCookieStore returns a store reading from r and writing to w. Set must
// be called before the response headers are written.
func NewCookieStore(w http.ResponseWriter, r *http.Request, secure bool) *CookieStore {
	return &CookieStore{r: r, w: w, secure: secure}
}

// Get implements Store.
func (c *CookieStore) Get(key string) (string, error) {
	if v, ok := c.set[key]; ok {
		return v, nil
	}
	ck, err := c.r.Cookie(key)
	if err != nil {
		return "", ErrMissing
	}
	return ck.Value, nil
}

// Set implements Store.
func (c *CookieStore) Set(key, value string) error {
	if c.set == nil {
		c.set = make(map[string]string)
	}
	c.set[key] = value
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

// Get implements Store.
func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return "", ErrMissing
	}
	return v, nil
}

// Set implements Store.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

type contextKey struct{}

// WithID returns a context carrying the visitor identifier.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the visitor identifier in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Middleware resolves the identifier from the visitor cookie before the
// handler runs and puts it into the request context.
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetOrCreate(NewCookieStore(w, r, secure))
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

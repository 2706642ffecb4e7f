// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// EventType names an auth state change.
type EventType string

// Auth state changes.
const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

// Event is broadcast on every sign-in and sign-out. SessionID identifies the
// session without exposing its token.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// SessionID derives the public identifier of a session token.
func SessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// Broker carries events between server instances.
type Broker interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe delivers every published event to fn until cancel is called.
	Subscribe(fn func(Event)) (cancel func(), err error)
	Close() error
}

// Hub fans broker events out to in-process listeners.
type Hub struct {
	broker Broker

	mu        sync.RWMutex
	listeners map[uint64]func(Event)
	next      uint64
	cancel    func()
}

// NewHub subscribes to the broker and returns a hub that dispatches its events.
func NewHub(broker Broker) (*Hub, error) {
	h := &Hub{
		broker:    broker,
		listeners: make(map[uint64]func(Event)),
	}
	cancel, err := broker.Subscribe(h.dispatch)
	if err != nil {
		return nil, err
	}
	h.cancel = cancel
	return h, nil
}

// Listen registers fn for every event and returns a function that removes it.
// fn must not block.
func (h *Hub) Listen(fn func(Event)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish sends e through the broker.
func (h *Hub) Publish(ctx context.Context, e Event) {
	if err := h.broker.Publish(ctx, e); err != nil {
		slog.Error("publishing auth event failed", "type", e.Type, "user_id", e.UserID, "error", err)
	}
}

// Listeners returns the number of registered listeners.
func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

func (h *Hub) dispatch(e Event) {
	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// Close unsubscribes from the broker and closes it.
func (h *Hub) Close() error {
	if h.cancel != nil {
		h.cancel()
	}
	return h.broker.Close()
}

// MemoryBroker delivers events within the process.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[uint64]func(Event)
	next uint64
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[uint64]func(Event))}
}

// Publish implements Broker.
func (b *MemoryBroker) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
	return nil
}

// Subscribe implements Broker.
func (b *MemoryBroker) Subscribe(fn func(Event)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

// Close implements Broker.
func (b *MemoryBroker) Close() error {
	return nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBroker sends events over a NATS subject.
type NATSBroker struct {
	conn    *nats.Conn
	subject string
}

// NewNATSBroker connects to NATS with automatic reconnection.
func NewNATSBroker(url, subject string) (*NATSBroker, error) {
	nc, err := nats.Connect(url,
		nats.Name("pesantren"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	if subject == "" {
		subject = DefaultChannel
	}
	return &NATSBroker{conn: nc, subject: subject}, nil
}

// Publish implements Broker.
func (b *NATSBroker) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return b.conn.Publish(b.subject, data)
}

// Subscribe implements Broker.
func (b *NATSBroker) Subscribe(fn func(Event)) (func(), error) {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			slog.Warn("dropping malformed auth event", "subject", b.subject, "error", err)
			return
		}
		fn(e)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", b.subject, err)
	}
	// Flush so the subscription is registered before events from other
	// connections are routed.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}

	return func() { _ = sub.Unsubscribe() }, nil
}

// Close implements Broker.
func (b *NATSBroker) Close() error {
	return b.conn.Drain()
}

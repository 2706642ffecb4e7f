// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package guard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/olegiv/pesantren-go/internal/auth"
)

// KeepAliveInterval spaces the comments that keep idle streams open.
var KeepAliveInterval = 25 * time.Second

// Events streams auth state changes for the viewer's session as
// server-sent events. A sign-out of that session ends the stream after an
// event named "signed_out" carrying the login URL. The subscription lives
// exactly as long as the request.
func (g *Guard) Events(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	if p == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		g.logger.Warn("event stream not supported", "error", err)
		return
	}

	signedOut := make(chan auth.Event, 1)
	unsubscribe := g.sessions.OnAuthStateChange(func(e auth.Event) {
		if e.Type != auth.SignedOut || e.SessionID != p.SessionID {
			return
		}
		select {
		case signedOut <- e:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case e := <-signedOut:
			data, _ := json.Marshal(struct {
				Type     auth.EventType `json:"type"`
				Redirect string         `json:"redirect"`
			}{e.Type, g.opts.LoginPath})
			_, _ = fmt.Fprintf(w, "event: signed_out\ndata: %s\n\n", data)
			_ = rc.Flush()
			return
		}
	}
}

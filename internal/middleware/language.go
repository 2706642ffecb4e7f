// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/olegiv/pesantren-go/internal/i18n"
)

type contextKey string

const contextKeyLanguage contextKey = "language"

// LanguageCookieName stores an explicit language choice.
const LanguageCookieName = "pesantren_lang"

// Language resolves the interface language: ?lang= (remembered in a cookie),
// then the cookie, then Accept-Language, then Indonesian.
func Language(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := ""
			if q := strings.ToLower(r.URL.Query().Get("lang")); q != "" && i18n.IsSupported(q) {
				lang = q
				http.SetCookie(w, &http.Cookie{
					Name:     LanguageCookieName,
					Value:    q,
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if lang == "" {
				if c, err := r.Cookie(LanguageCookieName); err == nil && i18n.IsSupported(c.Value) {
					lang = strings.ToLower(c.Value)
				}
			}
			if lang == "" {
				lang = i18n.MatchLanguage(r.Header.Get("Accept-Language"))
			}

			ctx := context.WithValue(r.Context(), contextKeyLanguage, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLang returns the language chosen by Language, or the default.
func GetLang(r *http.Request) string {
	if lang, ok := r.Context().Value(contextKeyLanguage).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/pesantren-go/internal/section"
	"github.com/olegiv/pesantren-go/internal/seo"
)

// SEOHandler serves robots.txt and the sitemap.
type SEOHandler struct {
	sources     section.Sources
	siteURL     string
	adminPath   string
	disallowAll bool
	logger      *slog.Logger
}

// NewSEOHandler creates an SEOHandler. An empty siteURL is derived from each
// request; disallowAll blocks every crawler.
func NewSEOHandler(src section.Sources, siteURL, adminPath string, disallowAll bool, logger *slog.Logger) *SEOHandler {
	return &SEOHandler{
		sources:     src,
		siteURL:     strings.TrimSuffix(siteURL, "/"),
		adminPath:   adminPath,
		disallowAll: disallowAll,
		logger:      logger,
	}
}

func (h *SEOHandler) baseURL(r *http.Request) string {
	if h.siteURL != "" {
		return h.siteURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// Robots serves robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	content := seo.BuildRobots(seo.RobotsConfig{
		SiteURL:       h.baseURL(r),
		DisallowAll:   h.disallowAll,
		DisallowPaths: []string{h.adminPath},
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(content))
}

// Sitemap serves the sitemap of the home page. Sections that fail to load
// are left out rather than failing the response.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	home := seo.HomeSitemap{SiteURL: h.baseURL(r)}

	if p, ok := section.LoadProfile(ctx, h.sources.Profile).Live(); ok {
		home.UpdatedAt = p.UpdatedAt
	}
	if items, ok := section.LoadGallery(ctx, h.sources.Gallery).Live(); ok {
		for _, it := range items {
			home.Photos = append(home.Photos, seo.Photo{URL: it.ImageURL, Title: it.Title, UpdatedAt: it.UpdatedAt})
		}
	}

	out, err := seo.BuildSitemap(home)
	if err != nil {
		logAndInternalError(w, h.logger, "failed to build sitemap", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(out)
}

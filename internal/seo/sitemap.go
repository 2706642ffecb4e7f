// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds robots.txt and the sitemap of the public site.
package seo

import (
	"encoding/xml"
	"strings"
	"time"
)

// Sitemap namespaces.
const (
	XMLNamespace      = "http://www.sitemaps.org/schemas/sitemap/0.9"
	ImageXMLNamespace = "http://www.google.com/schemas/sitemap-image/1.1"
)

// SitemapPath is where the sitemap is served.
const SitemapPath = "/sitemap.xml"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Change frequency values used by the site.
const (
	ChangeFreqDaily  ChangeFreq = "daily"
	ChangeFreqWeekly ChangeFreq = "weekly"
)

// SitemapImage is an image:image entry.
type SitemapImage struct {
	Loc     string `xml:"image:loc"`
	Caption string `xml:"image:caption,omitempty"`
}

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string         `xml:"loc"`
	LastMod    string         `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq     `xml:"changefreq,omitempty"`
	Priority   string         `xml:"priority,omitempty"`
	Images     []SitemapImage `xml:"image:image"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName    xml.Name     `xml:"urlset"`
	XMLNS      string       `xml:"xmlns,attr"`
	XMLNSImage string       `xml:"xmlns:image,attr,omitempty"`
	URLs       []SitemapURL `xml:"url"`
}

// Photo is a gallery photo listed on the home page.
type Photo struct {
	URL       string
	Title     string
	UpdatedAt time.Time
}

// HomeSitemap describes the single public page.
type HomeSitemap struct {
	SiteURL string
	// UpdatedAt is the latest change of any content shown on the page.
	UpdatedAt time.Time
	Photos    []Photo
}

// absolute resolves a root-relative object URL against the site URL.
func absolute(siteURL, u string) string {
	if strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") {
		return siteURL + u
	}
	return u
}

// BuildSitemap generates the sitemap XML of the home page with its gallery
// photos as image entries.
func BuildSitemap(h HomeSitemap) ([]byte, error) {
	siteURL := strings.TrimSuffix(h.SiteURL, "/")
	home := SitemapURL{
		Loc:        siteURL + "/",
		ChangeFreq: ChangeFreqWeekly,
		Priority:   "1.0",
	}

	last := h.UpdatedAt
	for _, p := range h.Photos {
		if p.URL == "" {
			continue
		}
		home.Images = append(home.Images, SitemapImage{Loc: absolute(siteURL, p.URL), Caption: p.Title})
		if p.UpdatedAt.After(last) {
			last = p.UpdatedAt
		}
	}
	if !last.IsZero() {
		home.LastMod = last.UTC().Format(time.RFC3339)
	}

	sitemap := Sitemap{XMLNS: XMLNamespace, URLs: []SitemapURL{home}}
	if len(home.Images) > 0 {
		sitemap.XMLNSImage = ImageXMLNamespace
	}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(output, xmlBytes...), nil
}

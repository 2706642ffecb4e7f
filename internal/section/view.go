// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package section

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/pesantren-go/internal/model"
)

// Defaults shown when live content is missing.
const (
	DefaultName         = "Pondok Pesantren Al-Hidayah"
	DefaultShortHistory = "Pesantren kami telah berdiri sejak puluhan tahun yang lalu dengan misi mencetak generasi Islam yang berkualitas."
	DefaultVision       = "Menjadi lembaga pendidikan Islam terdepan yang mencetak generasi Qurani."
	DefaultAddress      = "Jl. Pesantren No. 123, Kecamatan ABC, Kabupaten XYZ"
	DefaultWhatsApp     = "081234567890"
	DefaultEmail        = "info@pesantren.id"
	DefaultMapsEmbed    = "https://www.google.com/maps/embed?pb=!1m18!1m12!1m3!1d3966.521260322283!2d106.84513!3d-6.208763!2m3!1f0!2f0!3f0!3m2!1i1024!2i768!4f13.1!3m3!1m2!1s0x0%3A0x0!2zNsKwMTInMzEuNSJTIDEwNsKwNTAnNDIuNSJF!5e0!3m2!1sen!2sid!4v1234567890"

	DefaultGalleryTitle       = "Kegiatan Belajar Mengajar"
	DefaultGalleryDescription = "Santri sedang mengaji bersama"
	DefaultGalleryImage       = "/static/img/gallery-study.svg"

	// WhatsAppGreeting prefills the chat opened from the contact section.
	WhatsAppGreeting = "Assalamualaikum, saya ingin bertanya tentang pendaftaran santri."
)

// DefaultMission is the fallback mission list.
var DefaultMission = []string{"Menyelenggarakan pendidikan Islam berkualitas"}

var htmlSanitizer = bluemonday.UGCPolicy()

// RenderMarkdown converts admin-entered Markdown to sanitized HTML.
func RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src)) //nolint:gosec // escaped
	}
	return template.HTML(htmlSanitizer.Sanitize(buf.String())) //nolint:gosec // sanitized
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// ProfileView is the rendered profile section.
type ProfileView struct {
	Name    string
	History template.HTML
	Vision  string
	Mission []string
	State   State
}

// BuildProfile picks live values or defaults per field.
func BuildProfile(r Result[model.Profile]) ProfileView {
	p, _ := r.Live()
	mission := p.Mission
	if len(mission) == 0 {
		mission = DefaultMission
	}
	return ProfileView{
		Name:    orDefault(p.Name, DefaultName),
		History: RenderMarkdown(orDefault(p.ShortHistory, DefaultShortHistory)),
		Vision:  orDefault(p.Vision, DefaultVision),
		Mission: mission,
		State:   r.State,
	}
}

// ActivityTab is one category tab.
type ActivityTab struct {
	Category model.Category
	Label    string
	Items    []model.Activity
	// EmptyMessage is shown when Items is empty.
	EmptyMessage string
}

// ActivitiesView is the tabbed activities section.
type ActivitiesView struct {
	Tabs  []ActivityTab
	State State
}

// BuildActivities partitions the fetched set into the fixed category tabs.
// Every tab filters the same slice; nothing is fetched per tab.
func BuildActivities(r Result[[]model.Activity]) ActivitiesView {
	all, _ := r.Live()
	tabs := make([]ActivityTab, 0, len(model.Categories))
	for _, c := range model.Categories {
		tabs = append(tabs, ActivityTab{
			Category:     c,
			Label:        c.Label(),
			Items:        model.FilterByCategory(all, c),
			EmptyMessage: "Belum ada kegiatan " + string(c) + " yang ditambahkan.",
		})
	}
	return ActivitiesView{Tabs: tabs, State: r.State}
}

// Tab returns the tab for c.
func (v ActivitiesView) Tab(c model.Category) (ActivityTab, bool) {
	for _, t := range v.Tabs {
		if t.Category == c {
			return t, true
		}
	}
	return ActivityTab{}, false
}

// GalleryCard is one photo with its lightbox anchor.
type GalleryCard struct {
	Anchor      string
	Title       string
	ImageURL    string
	Description string
}

// GalleryView is the gallery grid.
type GalleryView struct {
	Items   []GalleryCard
	Default bool
	State   State
}

// BuildGallery shows live photos, or a single default photo otherwise.
func BuildGallery(r Result[[]model.GalleryItem]) GalleryView {
	items, ok := r.Live()
	if !ok {
		return GalleryView{
			Items: []GalleryCard{{
				Anchor:      "foto-1",
				Title:       DefaultGalleryTitle,
				ImageURL:    DefaultGalleryImage,
				Description: DefaultGalleryDescription,
			}},
			Default: true,
			State:   r.State,
		}
	}
	cards := make([]GalleryCard, 0, len(items))
	for _, it := range items {
		cards = append(cards, GalleryCard{
			Anchor:      "foto-" + it.ID,
			Title:       it.Title,
			ImageURL:    it.ImageURL,
			Description: it.Description,
		})
	}
	return GalleryView{Items: cards, State: r.State}
}

// ContactView is the contact section.
type ContactView struct {
	Address   string
	WhatsApp  string
	Email     string
	MapsEmbed string
	// WhatsAppLink is empty unless a live number is present.
	WhatsAppLink string
	State        State
}

// BuildContact picks live values or defaults per field.
func BuildContact(r Result[model.ContactInfo]) ContactView {
	c, _ := r.Live()
	return ContactView{
		Address:      orDefault(c.Address, DefaultAddress),
		WhatsApp:     orDefault(c.WhatsApp, DefaultWhatsApp),
		Email:        orDefault(c.Email, DefaultEmail),
		MapsEmbed:    mapsURL(c.MapsEmbed),
		WhatsAppLink: WhatsAppLink(c.WhatsApp),
		State:        r.State,
	}
}

// WhatsAppLink builds a wa.me chat link from a phone number in any format.
// It returns "" when the number has no digits.
func WhatsAppLink(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(WhatsAppGreeting)
}

// mapsURL accepts only absolute https URLs for the map iframe.
func mapsURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return DefaultMapsEmbed
	}
	return u.String()
}

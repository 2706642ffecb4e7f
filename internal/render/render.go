// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render executes the embedded html/template pages. Pages under
// public/ and auth/ use the base layout; pages under admin/ are wrapped in
// the dashboard layout as well.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/pesantren-go/internal/i18n"
	"github.com/olegiv/pesantren-go/internal/middleware"
	"github.com/olegiv/pesantren-go/internal/session"
)

// Flash types.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

const (
	baseLayout  = "layouts/base.html"
	adminLayout = "layouts/admin.html"

	dashboardRoute = "/dashboard"
)

// Renderer renders pages parsed once at start-up.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	adminPath      string
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	AdminPath      string
}

// New parses every page in cfg.TemplatesFS.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		adminPath:      cfg.AdminPath,
	}
	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) parseTemplates(fsys fs.FS) error {
	partials, err := templateFiles(fsys, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	groups := []struct {
		dir     string
		layouts []string
	}{
		{"public", []string{baseLayout}},
		{"auth", []string{baseLayout}},
		{"admin", []string{baseLayout, adminLayout}},
	}

	for _, g := range groups {
		pages, err := templateFiles(fsys, g.dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", g.dir, err)
		}
		for _, page := range pages {
			name := g.dir + "/" + strings.TrimSuffix(path.Base(page), ".html")

			files := append([]string{}, g.layouts...)
			files = append(files, partials...)
			files = append(files, page)

			tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(fsys, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}
	return nil
}

func templateFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".html") {
			files = append(files, path.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"T": i18n.T,
		"formatDate": func(t time.Time) string {
			return t.Format("02 Jan 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("02 Jan 2006 15:04")
		},
		"truncate": func(s string, n int) string {
			runes := []rune(s)
			if len(runes) <= n {
				return s
			}
			return string(runes[:n]) + "..."
		},
		"add": func(a, b int) int {
			return a + b
		},
		"hasPrefix": strings.HasPrefix,
		"navLink":   navLink,
	}
}

// NavLink is one dashboard sidebar entry.
type NavLink struct {
	URL    string
	Label  string
	Active bool
}

// navLink builds the sidebar entry for route, relative to the admin path.
// The overview entry is active on its own page only; the others also on
// their sub-pages.
func navLink(d TemplateData, route, labelKey string) NavLink {
	url := d.AdminPath + route
	active := d.Path == url || d.Path == url+"/"
	if !active && route != dashboardRoute {
		active = strings.HasPrefix(d.Path, url+"/")
	}
	return NavLink{URL: url, Label: i18n.T(d.Lang, labelKey), Active: active}
}

// TemplateData is passed to every page.
type TemplateData struct {
	Title       string
	Lang        string
	Path        string
	AdminPath   string
	UserEmail   string
	Data        any
	Flash       string
	FlashType   string
	CurrentYear int
}

// Has reports whether a page was parsed under name.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Render renders page name with status 200.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders page name. A pending flash message is popped from the
// session and translated into the page language.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data.Lang == "" {
		data.Lang = middleware.GetLang(req)
	}
	data.Path = req.URL.Path
	data.AdminPath = r.adminPath
	data.CurrentYear = time.Now().Year()

	if r.sessionManager != nil && data.Flash == "" {
		if flash := r.sessionManager.PopString(req.Context(), session.KeyFlash); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessionManager.PopString(req.Context(), session.KeyFlashType)
		}
	}
	if data.Flash != "" {
		data.Flash = i18n.T(data.Lang, data.Flash)
		if data.FlashType == "" {
			data.FlashType = FlashInfo
		}
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("writing response", "template", name, "error", err)
	}
	return nil
}

// SetFlash queues a message for the next rendered page. message may be an
// i18n key.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		r.sessionManager.Put(req.Context(), session.KeyFlash, message)
		r.sessionManager.Put(req.Context(), session.KeyFlashType, flashType)
	}
}

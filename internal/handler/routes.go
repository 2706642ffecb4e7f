// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/pesantren-go/internal/middleware"
)

// Handlers groups every handler mounted by the router.
type Handlers struct {
	Public     *PublicHandler
	Auth       *AuthHandler
	Dashboard  *DashboardHandler
	Profile    *ProfileHandler
	Contact    *ContactHandler
	Activities *ActivitiesHandler
	Gallery    *GalleryHandler
	Health     *HealthHandler
	SEO        *SEOHandler
}

// RouterConfig holds everything the router mounts besides the handlers.
type RouterConfig struct {
	AdminPath       string
	IsDevelopment   bool
	RequestTimeout  time.Duration
	Static          fs.FS
	SessionManager  *scs.SessionManager
	Security        middleware.SecurityHeadersConfig
	CSRF            middleware.CSRFConfig
	LoginProtection *middleware.LoginProtection
	// Guard protects every dashboard route.
	Guard func(http.Handler) http.Handler
	// Events streams auth events to the dashboard.
	Events http.HandlerFunc
	// Track records public page views. Nil disables tracking.
	Track func(http.Handler) http.Handler
	// Uploads serves locally stored gallery objects under UploadsPrefix.
	Uploads       http.Handler
	UploadsPrefix string
}

// crudHandlers is one list/create/edit/delete resource.
type crudHandlers struct {
	List          http.HandlerFunc
	NewForm       http.HandlerFunc
	Create        http.HandlerFunc
	EditForm      http.HandlerFunc
	Update        http.HandlerFunc
	ConfirmDelete http.HandlerFunc
	Delete        http.HandlerFunc
}

func registerCRUD(r chi.Router, h crudHandlers) {
	r.Get("/", h.List)
	r.Get(suffixNew, h.NewForm)
	r.Post("/", h.Create)
	r.Get("/{id}"+suffixEdit, h.EditForm)
	r.Post("/{id}", h.Update)
	r.Get("/{id}"+suffixDelete, h.ConfirmDelete)
	r.Post("/{id}"+suffixDelete, h.Delete)
}

// NewRouter builds the application router.
func NewRouter(cfg RouterConfig, h Handlers) chi.Router {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(timeout, cfg.AdminPath+RouteEvents))
	r.Use(middleware.SecurityHeaders(cfg.Security))
	r.Use(middleware.Language(!cfg.IsDevelopment))
	r.Use(cfg.SessionManager.LoadAndSave)

	r.Get(RouteHealth, h.Health.Health)
	r.Get(RouteHealth+"/live", h.Health.Liveness)
	if h.SEO != nil {
		r.Get(RouteRobots, h.SEO.Robots)
		r.Get(RouteSitemap, h.SEO.Sitemap)
	}

	if cfg.Static != nil {
		static := http.StripPrefix(RouteStatic+"/", http.FileServer(http.FS(cfg.Static)))
		r.Handle(RouteStatic+"/*", middleware.StaticCache(86400)(static))
	}
	if cfg.Uploads != nil && cfg.UploadsPrefix != "" {
		uploads := http.StripPrefix(cfg.UploadsPrefix, cfg.Uploads)
		r.Handle(cfg.UploadsPrefix+"*", middleware.StaticCache(604800)(uploads))
	}

	r.Group(func(r chi.Router) {
		if cfg.Track != nil {
			r.Use(cfg.Track)
		}
		r.Get(RouteHome, h.Public.Home)
	})

	r.Route(cfg.AdminPath, func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.CSRF(cfg.CSRF))

		r.Get("/", h.Auth.LoginForm)
		if cfg.LoginProtection != nil {
			r.With(cfg.LoginProtection.Middleware()).Post("/", h.Auth.Login)
		} else {
			r.Post("/", h.Auth.Login)
		}
		r.Post(RouteLogout, h.Auth.Logout)

		r.Route(RouteDashboard, func(r chi.Router) {
			r.Use(cfg.Guard)

			r.Get("/", h.Dashboard.Overview)
			r.Get(pathChart, h.Dashboard.Chart)
			if cfg.Events != nil {
				r.Get(pathEvents, cfg.Events)
			}

			r.Get(pathProfile, h.Profile.Edit)
			r.Post(pathProfile, h.Profile.Update)
			r.Get(pathContact, h.Contact.Edit)
			r.Post(pathContact, h.Contact.Update)

			r.Route(pathActivities, func(r chi.Router) {
				registerCRUD(r, crudHandlers{
					List:          h.Activities.List,
					NewForm:       h.Activities.NewForm,
					Create:        h.Activities.Create,
					EditForm:      h.Activities.EditForm,
					Update:        h.Activities.Update,
					ConfirmDelete: h.Activities.ConfirmDelete,
					Delete:        h.Activities.Delete,
				})
			})
			r.Route(pathGallery, func(r chi.Router) {
				registerCRUD(r, crudHandlers{
					List:          h.Gallery.List,
					NewForm:       h.Gallery.NewForm,
					Create:        h.Gallery.Upload,
					EditForm:      h.Gallery.EditForm,
					Update:        h.Gallery.Update,
					ConfirmDelete: h.Gallery.ConfirmDelete,
					Delete:        h.Gallery.Delete,
				})
			})
		})
	})

	r.NotFound(h.Public.NotFound)
	return r
}

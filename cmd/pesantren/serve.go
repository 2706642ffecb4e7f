// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/pesantren-go/internal/backend"
	"github.com/olegiv/pesantren-go/internal/config"
	"github.com/olegiv/pesantren-go/internal/geoip"
	"github.com/olegiv/pesantren-go/internal/guard"
	"github.com/olegiv/pesantren-go/internal/handler"
	"github.com/olegiv/pesantren-go/internal/i18n"
	"github.com/olegiv/pesantren-go/internal/imaging"
	"github.com/olegiv/pesantren-go/internal/logging"
	"github.com/olegiv/pesantren-go/internal/manager"
	"github.com/olegiv/pesantren-go/internal/middleware"
	"github.com/olegiv/pesantren-go/internal/render"
	"github.com/olegiv/pesantren-go/internal/scheduler"
	"github.com/olegiv/pesantren-go/internal/section"
	"github.com/olegiv/pesantren-go/internal/session"
	"github.com/olegiv/pesantren-go/internal/stats"
	"github.com/olegiv/pesantren-go/internal/storage"
	"github.com/olegiv/pesantren-go/internal/store"
	"github.com/olegiv/pesantren-go/internal/tracking"
	"github.com/olegiv/pesantren-go/internal/version"
	"github.com/olegiv/pesantren-go/web"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the web server",
	GroupID: "server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting pesantren", "version", version.Get().String(), "env", cfg.Env)

	if err := i18n.Init(logger); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if err := ensureDataDir(cfg); err != nil {
		return err
	}
	client, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening data client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slog.Error("error closing data client", "error", err)
		}
	}()

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})
	logger = slog.New(logging.NewEventLogHandler(textHandler, client.DB, client.Dialect))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	if cfg.DoSeed {
		if err := store.Seed(ctx, client.DB, client.Dialect); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	sessionManager := session.New(client.DB, client.Dialect, cfg.IsDevelopment())

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		AdminPath:      cfg.AdminPath,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		// Country codes are optional; tracking continues without them.
		slog.Warn("failed to open GeoIP database", "path", cfg.GeoIPDBPath, "error", err)
		geo, _ = geoip.Open("")
	}
	defer func() { _ = geo.Close() }()

	tracker := tracking.New(client.PageViews, geo, logger)

	g := guard.New(client.Auth, client.UserRoles, guard.Options{
		LoginPath: cfg.AdminPath,
		Token:     func(r *http.Request) string { return session.AuthToken(sessionManager, r) },
		Clear:     func(r *http.Request) { session.Clear(sessionManager, r) },
	}, logger)

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	sched := scheduler.New(logger)
	jobs := []scheduler.Job{
		scheduler.PurgeSessionsJob(cfg.SessionPurgeSchedule, client.Auth, logger),
		scheduler.OrphanSweepJob(cfg.OrphanSweepSchedule, manager.GalleryPrefix, client.Storage, client.Gallery, logger),
	}
	if geo.Enabled() {
		jobs = append(jobs, scheduler.GeoIPReloadJob(cfg.GeoIPReloadSchedule, geo))
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("scheduling %s: %w", job.Name, err)
		}
	}
	sched.Start()

	sources := section.Sources{
		Profile:    client.Profile,
		Activities: client.Activities,
		Gallery:    client.Gallery,
		Contact:    client.Contact,
	}
	assetsHost := cfg.ChartAssetsHost
	if assetsHost == "" {
		assetsHost = stats.DefaultAssetsHost
	}
	processor := imaging.NewProcessor(imaging.DefaultOptions())

	h := handler.Handlers{
		Public:     handler.NewPublicHandler(renderer, cfg.AdminPath, sources, logger),
		Auth:       handler.NewAuthHandler(renderer, cfg.AdminPath, client.Auth, client.UserRoles, g, sessionManager, loginProtection, logger),
		Dashboard:  handler.NewDashboardHandler(renderer, cfg.AdminPath, stats.New(client.Activities, client.Gallery, client.PageViews, loc), assetsHost, logger),
		Profile:    handler.NewProfileHandler(renderer, cfg.AdminPath, manager.NewProfileManager(client.Profile), logger),
		Contact:    handler.NewContactHandler(renderer, cfg.AdminPath, manager.NewContactManager(client.Contact), logger),
		Activities: handler.NewActivitiesHandler(renderer, cfg.AdminPath, manager.NewActivitiesManager(client.Activities), logger),
		Gallery:    handler.NewGalleryHandler(renderer, cfg.AdminPath, manager.NewGalleryManager(client.Gallery, client.Storage, processor, logger), logger),
		Health:     handler.NewHealthHandler(client.DB),
		SEO:        handler.NewSEOHandler(sources, cfg.PublicBaseURL, cfg.AdminPath, cfg.IsDevelopment(), logger),
	}

	security := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	security.PathPolicies = map[string]string{
		cfg.AdminPath + handler.RouteChart: middleware.ChartCSP(assetsHost),
	}

	routerCfg := handler.RouterConfig{
		AdminPath:       cfg.AdminPath,
		IsDevelopment:   cfg.IsDevelopment(),
		Static:          staticFS,
		SessionManager:  sessionManager,
		Security:        security,
		CSRF:            middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr()),
		LoginProtection: loginProtection,
		Guard:           g.Middleware,
		Events:          g.Events,
		Track: tracker.Middleware(tracking.MiddlewareOptions{
			AdminPath:    cfg.AdminPath,
			SecureCookie: !cfg.IsDevelopment(),
		}),
	}
	if local, ok := client.Storage.(*storage.LocalBucket); ok {
		routerCfg.Uploads = local.Handler()
		routerCfg.UploadsPrefix = storage.PublicPrefix + backend.GalleryBucket + "/"
	}
	r := handler.NewRouter(routerCfg, h)

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for photo uploads on slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "admin_path", cfg.AdminPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			sched.Stop()
			tracker.Close()
			return fmt.Errorf("server error: %w", err)
		}
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	sched.Stop()
	tracker.Close()

	slog.Info("server stopped")
	return nil
}

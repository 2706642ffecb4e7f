// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/pesantren-go/internal/auth"
	"github.com/olegiv/pesantren-go/internal/backend"
	"github.com/olegiv/pesantren-go/internal/guard"
	"github.com/olegiv/pesantren-go/internal/i18n"
	"github.com/olegiv/pesantren-go/internal/imaging"
	"github.com/olegiv/pesantren-go/internal/manager"
	"github.com/olegiv/pesantren-go/internal/middleware"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/render"
	"github.com/olegiv/pesantren-go/internal/section"
	"github.com/olegiv/pesantren-go/internal/session"
	"github.com/olegiv/pesantren-go/internal/stats"
	"github.com/olegiv/pesantren-go/internal/storage"
	"github.com/olegiv/pesantren-go/internal/store"
	"github.com/olegiv/pesantren-go/internal/testutil"
	"github.com/olegiv/pesantren-go/internal/tracking"
	"github.com/olegiv/pesantren-go/web"
)

const (
	testAdminPath = "/adminq"
	testEmail     = "admin@pesantren.id"
	testPassword  = "rahasia-sekali-123"

	browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

// testApp is the whole application behind an httptest server.
type testApp struct {
	t       *testing.T
	client  *backend.Client
	bucket  *storage.LocalBucket
	tracker *tracking.Tracker
	server  *httptest.Server
	http    *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	logger := testutil.TestLoggerSilent()

	if err := i18n.Init(nil); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}

	db := testutil.TestDB(t)
	if err := store.Seed(ctx, db, store.DialectSQLite); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	hub, err := auth.NewHub(auth.NewMemoryBroker())
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	t.Cleanup(func() { _ = hub.Close() })

	bucket, err := storage.NewLocalBucket(t.TempDir(), backend.GalleryBucket, "")
	if err != nil {
		t.Fatalf("NewLocalBucket: %v", err)
	}
	client := backend.New(db, store.DialectSQLite, hub, bucket)

	sm := session.New(db, store.DialectSQLite, true)

	templates, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	renderer, err := render.New(render.Config{TemplatesFS: templates, SessionManager: sm, AdminPath: testAdminPath})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	g := guard.New(client.Auth, client.UserRoles, guard.Options{
		LoginPath: testAdminPath,
		Token:     func(r *http.Request) string { return session.AuthToken(sm, r) },
		Clear:     func(r *http.Request) { session.Clear(sm, r) },
	}, logger)

	tracker := tracking.New(client.PageViews, nil, logger)
	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: 3,
	})
	t.Cleanup(lp.Close)

	sources := section.Sources{
		Profile:    client.Profile,
		Activities: client.Activities,
		Gallery:    client.Gallery,
		Contact:    client.Contact,
	}
	h := Handlers{
		Public:     NewPublicHandler(renderer, testAdminPath, sources, logger),
		Auth:       NewAuthHandler(renderer, testAdminPath, client.Auth, client.UserRoles, g, sm, lp, logger),
		Dashboard:  NewDashboardHandler(renderer, testAdminPath, stats.New(client.Activities, client.Gallery, client.PageViews, time.UTC), "", logger),
		Profile:    NewProfileHandler(renderer, testAdminPath, manager.NewProfileManager(client.Profile), logger),
		Contact:    NewContactHandler(renderer, testAdminPath, manager.NewContactManager(client.Contact), logger),
		Activities: NewActivitiesHandler(renderer, testAdminPath, manager.NewActivitiesManager(client.Activities), logger),
		Gallery: NewGalleryHandler(renderer, testAdminPath,
			manager.NewGalleryManager(client.Gallery, bucket, imaging.NewProcessor(imaging.DefaultOptions()), logger), logger),
		Health: NewHealthHandler(db),
		SEO:    NewSEOHandler(sources, "", testAdminPath, false, logger),
	}

	security := middleware.DefaultSecurityHeadersConfig(true)
	security.PathPolicies = map[string]string{
		testAdminPath + RouteChart: middleware.ChartCSP(stats.DefaultAssetsHost),
	}

	router := NewRouter(RouterConfig{
		AdminPath:       testAdminPath,
		IsDevelopment:   true,
		Static:          static,
		SessionManager:  sm,
		Security:        security,
		CSRF:            middleware.DefaultCSRFConfig([]byte("0123456789abcdef0123456789abcdef"), true, ""),
		LoginProtection: lp,
		Guard:           g.Middleware,
		Events:          g.Events,
		Track:           tracker.Middleware(tracking.MiddlewareOptions{AdminPath: testAdminPath}),
		Uploads:         bucket.Handler(),
		UploadsPrefix:   storage.PublicPrefix + backend.GalleryBucket + "/",
	}, h)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	t.Cleanup(tracker.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &testApp{
		t:       t,
		client:  client,
		bucket:  bucket,
		tracker: tracker,
		server:  server,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// createUser creates a user, optionally with the admin role.
func (a *testApp) createUser(email string, admin bool) *model.User {
	a.t.Helper()
	ctx := context.Background()
	u, err := a.client.Auth.CreateUser(ctx, email, testPassword)
	if err != nil {
		a.t.Fatalf("CreateUser: %v", err)
	}
	if admin {
		if err := a.client.Auth.GrantRole(ctx, u.ID, model.RoleAdmin); err != nil {
			a.t.Fatalf("GrantRole: %v", err)
		}
	}
	return u
}

// result is a finished response with its body read.
type result struct {
	status   int
	location string
	body     string
	header   http.Header
}

func (a *testApp) do(req *http.Request) result {
	a.t.Helper()
	req.Header.Set("User-Agent", browserUA)
	resp, err := a.http.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return result{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		body:     string(body),
		header:   resp.Header,
	}
}

func (a *testApp) get(path string) result {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	if err != nil {
		a.t.Fatalf("NewRequest: %v", err)
	}
	return a.do(req)
}

func (a *testApp) post(path string, form url.Values) result {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		a.t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

// login signs in through the login form and checks the redirect.
func (a *testApp) login(email string) {
	a.t.Helper()
	res := a.post(testAdminPath, url.Values{"email": {email}, "password": {testPassword}})
	if res.status != http.StatusSeeOther || res.location != testAdminPath+RouteDashboard {
		a.t.Fatalf("login: status %d, location %q, body %s", res.status, res.location, res.body)
	}
}

// loginAdmin creates an administrator and signs in.
func (a *testApp) loginAdmin() *model.User {
	a.t.Helper()
	u := a.createUser(testEmail, true)
	a.login(testEmail)
	return u
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body does not contain %q", w)
		}
	}
}

func assertNotContains(t *testing.T, body string, unwanted ...string) {
	t.Helper()
	for _, u := range unwanted {
		if strings.Contains(body, u) {
			t.Errorf("body unexpectedly contains %q", u)
		}
	}
}

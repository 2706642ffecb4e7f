package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/pesantren-go/internal/auth"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/store"
	"github.com/olegiv/pesantren-go/internal/testutil"
)

type env struct {
	auth  *auth.Service
	hub   *auth.Hub
	guard *Guard
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.TestDB(t)
	hub, err := auth.NewHub(auth.NewMemoryBroker())
	require.NoError(t, err)
	t.Cleanup(func() { _ = hub.Close() })

	svc := auth.NewService(db, store.DialectSQLite, hub)
	roles := store.NewTable(db, store.DialectSQLite, store.UserRoleSchema)
	g := New(svc, roles, Options{
		LoginPath: "/adminq",
		Token:     func(r *http.Request) string { return r.Header.Get("X-Test-Token") },
	}, testutil.TestLoggerSilent())
	return &env{auth: svc, hub: hub, guard: g}
}

func (e *env) signIn(t *testing.T, email string, admin bool) *auth.Session {
	t.Helper()
	ctx := context.Background()
	u, err := e.auth.CreateUser(ctx, email, "rahasia-sekali-123")
	require.NoError(t, err)
	if admin {
		require.NoError(t, e.auth.GrantRole(ctx, u.ID, model.RoleAdmin))
	}
	sess, err := e.auth.SignInWithPassword(ctx, email, "rahasia-sekali-123")
	require.NoError(t, err)
	return sess
}

func TestCheck_NoSession(t *testing.T) {
	e := setup(t)

	for _, token := range []string{"", "unknown-token"} {
		d := e.guard.Check(context.Background(), token)
		assert.Equal(t, Redirect, d.Outcome)
		assert.Equal(t, ReasonNoSession, d.Reason)
		assert.Nil(t, d.Principal)
	}
}

func TestCheck_WithoutAdminRoleSignsOut(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	sess := e.signIn(t, "ustadz@pesantren.id", false)

	var events []auth.Event
	defer e.auth.OnAuthStateChange(func(ev auth.Event) { events = append(events, ev) })()

	d := e.guard.Check(ctx, sess.Token)
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, ReasonNotAdmin, d.Reason)

	live, err := e.auth.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, live, "session signed out")
	require.Len(t, events, 1)
	assert.Equal(t, auth.SignedOut, events[0].Type)
}

func TestCheck_Admin(t *testing.T) {
	e := setup(t)
	sess := e.signIn(t, "admin@pesantren.id", true)

	d := e.guard.Check(context.Background(), sess.Token)
	require.Equal(t, Authorized, d.Outcome)
	assert.Equal(t, sess.UserID, d.Principal.UserID)
	assert.Equal(t, "admin@pesantren.id", d.Principal.Email)
	assert.Equal(t, sess.ID(), d.Principal.SessionID)
}

type failingRoles struct{}

func (failingRoles) MaybeSingle(context.Context, store.Query) (*model.UserRole, error) {
	return nil, errors.New("connection reset")
}

func TestCheck_RoleLookupFailureRedirects(t *testing.T) {
	e := setup(t)
	sess := e.signIn(t, "admin@pesantren.id", true)
	g := New(e.auth, failingRoles{}, Options{LoginPath: "/adminq"}, testutil.TestLoggerSilent())

	d := g.Check(context.Background(), sess.Token)
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, ReasonRoleFailed, d.Reason)
}

func TestMiddleware(t *testing.T) {
	e := setup(t)
	admin := e.signIn(t, "admin@pesantren.id", true)
	santri := e.signIn(t, "santri@pesantren.id", false)

	cleared := 0
	e.guard.opts.Clear = func(*http.Request) { cleared++ }

	var seen *Principal
	h := e.guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
		_, _ = w.Write([]byte("dashboard"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/adminq/dashboard", nil)
	req.Header.Set("X-Test-Token", admin.Token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, admin.UserID, seen.UserID)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/adminq/dashboard", nil)
	req.Header.Set("X-Test-Token", santri.Token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/adminq", rec.Header().Get("Location"))
	assert.Nil(t, seen, "dashboard content never reached")
	assert.Equal(t, 1, cleared)
}

func TestEvents_SignOutEndsStream(t *testing.T) {
	e := setup(t)
	sess := e.signIn(t, "admin@pesantren.id", true)
	other := e.signIn(t, "admin2@pesantren.id", true)

	d := e.guard.Check(context.Background(), sess.Token)
	require.Equal(t, Authorized, d.Outcome)

	before := e.hub.Listeners()
	req := httptest.NewRequest(http.MethodGet, "/adminq/dashboard/events", nil)
	req = req.WithContext(WithPrincipal(req.Context(), d.Principal))
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		e.guard.Events(rec, req)
		close(done)
	}()
	require.Eventually(t, func() bool { return e.hub.Listeners() == before+1 }, time.Second, 5*time.Millisecond)

	// Another session signing out does not end this stream.
	require.NoError(t, e.auth.SignOut(context.Background(), other.Token))
	require.NoError(t, e.auth.SignOut(context.Background(), sess.Token))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after sign out")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event: signed_out"))
	assert.Contains(t, body, `"redirect":"/adminq"`)
	assert.Equal(t, before, e.hub.Listeners(), "subscription released")
}

func TestEvents_ClientDisconnect(t *testing.T) {
	e := setup(t)
	before := e.hub.Listeners()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/adminq/dashboard/events", nil).WithContext(
		WithPrincipal(ctx, &Principal{UserID: "u", SessionID: "s"}))

	done := make(chan struct{})
	go func() {
		e.guard.Events(httptest.NewRecorder(), req)
		close(done)
	}()
	require.Eventually(t, func() bool { return e.hub.Listeners() == before+1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, before, e.hub.Listeners())
}

func TestEvents_RequiresPrincipal(t *testing.T) {
	e := setup(t)
	rec := httptest.NewRecorder()
	e.guard.Events(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/store"
	"github.com/olegiv/pesantren-go/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.TestDB(t)
	hub, err := NewHub(NewMemoryBroker())
	require.NoError(t, err)
	t.Cleanup(func() { _ = hub.Close() })
	return NewService(db, store.DialectSQLite, hub)
}

func TestService_SignInAndGetSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, " Admin@Pesantren.ID ", "rahasia-123")
	require.NoError(t, err)
	assert.Equal(t, "admin@pesantren.id", user.Email)

	rec := &recorder{}
	unsubscribe := svc.OnAuthStateChange(rec.record)
	defer unsubscribe()

	sess, err := svc.SignInWithPassword(ctx, "admin@pesantren.id", "rahasia-123")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, user.ID, sess.UserID)

	got, err := svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, "admin@pesantren.id", got.Email)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, SignedIn, events[0].Type)
	assert.Equal(t, sess.ID(), events[0].SessionID)
	assert.NotContains(t, events[0].SessionID, sess.Token)
}

func TestService_SignInInvalidCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "admin@pesantren.id", "rahasia-123")
	require.NoError(t, err)

	_, err = svc.SignInWithPassword(ctx, "admin@pesantren.id", "salah")
	assert.True(t, errors.Is(err, ErrInvalidCredentials), "wrong password: %v", err)

	_, err = svc.SignInWithPassword(ctx, "nobody@pesantren.id", "rahasia-123")
	assert.True(t, errors.Is(err, ErrInvalidCredentials), "unknown email: %v", err)
}

func TestService_SignOutEmitsEventAndEndsSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "admin@pesantren.id", "rahasia-123")
	require.NoError(t, err)
	sess, err := svc.SignInWithPassword(ctx, "admin@pesantren.id", "rahasia-123")
	require.NoError(t, err)

	rec := &recorder{}
	unsubscribe := svc.OnAuthStateChange(rec.record)
	defer unsubscribe()

	require.NoError(t, svc.SignOut(ctx, sess.Token))

	got, err := svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, SignedOut, events[0].Type)
	assert.Equal(t, sess.UserID, events[0].UserID)

	// Second sign-out of the same token is a no-op.
	require.NoError(t, svc.SignOut(ctx, sess.Token))
	assert.Len(t, rec.all(), 1)
}

func TestService_GetSessionExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "admin@pesantren.id", "rahasia-123")
	require.NoError(t, err)
	sess, err := svc.SignInWithPassword(ctx, "admin@pesantren.id", "rahasia-123")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(SessionLifetime + time.Hour) }

	got, err := svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_GetSessionEmptyToken(t *testing.T) {
	svc := newTestService(t)

	got, err := svc.GetSession(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_CreateUserDuplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "admin@pesantren.id", "a")
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "ADMIN@pesantren.id", "b")
	assert.True(t, errors.Is(err, ErrUserExists), "err = %v", err)
}

func TestService_GrantRoleIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "admin@pesantren.id", "a")
	require.NoError(t, err)

	require.NoError(t, svc.GrantRole(ctx, user.ID, model.RoleAdmin))
	require.NoError(t, svc.GrantRole(ctx, user.ID, model.RoleAdmin))

	n, err := svc.roles.Count(ctx, store.Where("user_id", user.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHub_ListenAndUnsubscribe(t *testing.T) {
	hub, err := NewHub(NewMemoryBroker())
	require.NoError(t, err)
	defer func() { _ = hub.Close() }()

	rec := &recorder{}
	unsubscribe := hub.Listen(rec.record)
	assert.Equal(t, 1, hub.Listeners())

	hub.Publish(context.Background(), Event{Type: SignedOut, UserID: "u1"})
	unsubscribe()
	unsubscribe()
	hub.Publish(context.Background(), Event{Type: SignedOut, UserID: "u2"})

	assert.Equal(t, 0, hub.Listeners())
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "u1", events[0].UserID)
}

func TestSessionID_Stable(t *testing.T) {
	assert.Equal(t, SessionID("abc"), SessionID("abc"))
	assert.NotEqual(t, SessionID("abc"), SessionID("abd"))
	assert.Len(t, SessionID("abc"), 32)
}

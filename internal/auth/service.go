// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth is the authentication side of the data client: argon2id
// password hashing, password sign-in with server-side sessions, and the
// auth state change notifications the dashboard listens to.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/store"
)

// SessionLifetime is how long a sign-in stays valid.
const SessionLifetime = 7 * 24 * time.Hour

var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrUserExists is returned when creating a user whose email is taken.
	ErrUserExists = errors.New("user already exists")
)

// Session is an active sign-in.
type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ID returns the public identifier of the session.
func (s *Session) ID() string {
	return SessionID(s.Token)
}

// sessionSchema maps auth_sessions. Email is filled from users after scanning.
var sessionSchema = store.Schema[Session]{
	Name:    "auth_sessions",
	Columns: []string{"token", "user_id", "expires_at", "created_at"},
	Scan: func(s store.RowScanner) (Session, error) {
		var sess Session
		err := s.Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
		return sess, err
	},
}

// Service signs users in and out and tracks their sessions.
type Service struct {
	users    *store.Table[model.User]
	roles    *store.Table[model.UserRole]
	sessions *store.Table[Session]
	hub      *Hub
	now      func() time.Time
}

// NewService creates the auth service. Sign-in and sign-out events are
// published through hub.
func NewService(db store.DBTX, dialect store.Dialect, hub *Hub) *Service {
	return &Service{
		users:    store.NewTable(db, dialect, store.UserSchema),
		roles:    store.NewTable(db, dialect, store.UserRoleSchema),
		sessions: store.NewTable(db, dialect, sessionSchema),
		hub:      hub,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignInWithPassword verifies the credentials and starts a session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.MaybeSingle(ctx, store.Where("email", normalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		// Spend the same time as a real check so unknown emails are not revealed.
		_, _ = CheckPassword(password, dummyHash())
		return nil, ErrInvalidCredentials
	}

	ok, err := CheckPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(SessionLifetime),
		CreatedAt: now,
	}
	if _, err := s.sessions.Insert(ctx, store.Values{
		"token":      sess.Token,
		"user_id":    sess.UserID,
		"expires_at": sess.ExpiresAt,
		"created_at": sess.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	userUpdate := store.Values{"last_sign_in_at": now}
	if NeedsRehash(user.PasswordHash) {
		if hash, err := HashPassword(password); err == nil {
			userUpdate["password_hash"] = hash
		}
	}
	if _, err := s.users.Update(ctx, userUpdate, store.Where("id", user.ID)); err != nil {
		slog.Warn("updating user after sign in failed", "user_id", user.ID, "error", err)
	}

	s.hub.Publish(ctx, Event{Type: SignedIn, UserID: sess.UserID, SessionID: sess.ID(), At: now})
	return sess, nil
}

// GetSession returns the live session for token, or nil when the token is
// unknown or expired.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.sessions.MaybeSingle(ctx, store.Where("token", token))
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	if sess == nil || !sess.ExpiresAt.After(s.now()) {
		return nil, nil
	}

	user, err := s.users.MaybeSingle(ctx, store.Where("id", sess.UserID))
	if err != nil {
		return nil, fmt.Errorf("looking up session user: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	sess.Email = user.Email
	return sess, nil
}

// SignOut ends the session for token. Signing out an unknown token is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, err := s.sessions.MaybeSingle(ctx, store.Where("token", token))
	if err != nil {
		return fmt.Errorf("looking up session: %w", err)
	}
	if sess == nil {
		return nil
	}
	if _, err := s.sessions.Delete(ctx, store.Where("token", token)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	s.hub.Publish(ctx, Event{Type: SignedOut, UserID: sess.UserID, SessionID: sess.ID(), At: s.now()})
	return nil
}

// OnAuthStateChange registers fn for sign-in and sign-out events and returns
// the function that unsubscribes it.
func (s *Service) OnAuthStateChange(fn func(Event)) func() {
	return s.hub.Listen(fn)
}

// PurgeExpired deletes sessions that expired before now.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.Delete(ctx, store.All().Lt("expires_at", s.now()))
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	return n, nil
}

// CreateUser adds an account with the given password.
func (s *Service) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	existing, err := s.users.MaybeSingle(ctx, store.Where("email", email))
	if err != nil {
		return nil, fmt.Errorf("checking for user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", email, ErrUserExists)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	id, err := s.users.Insert(ctx, store.Values{
		"email":         email,
		"password_hash": hash,
		"created_at":    now,
	})
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &model.User{ID: id, Email: email, PasswordHash: hash, CreatedAt: now}, nil
}

// GetUserByEmail returns the user with email, or nil.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.MaybeSingle(ctx, store.Where("email", normalizeEmail(email)))
}

// GrantRole records that userID holds role. Granting an existing role is a no-op.
func (s *Service) GrantRole(ctx context.Context, userID, role string) error {
	existing, err := s.roles.MaybeSingle(ctx, store.Where("user_id", userID).Eq("role", role))
	if err != nil {
		return fmt.Errorf("checking role: %w", err)
	}
	if existing != nil {
		return nil
	}
	if _, err := s.roles.Insert(ctx, store.Values{"user_id": userID, "role": role}); err != nil {
		return fmt.Errorf("granting role: %w", err)
	}
	return nil
}

// dummyHash is checked against when the email is unknown.
var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("pesantren-dummy-password")
	return h
})

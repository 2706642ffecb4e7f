package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/olegiv/pesantren-go/internal/model"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "pesantren-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db, DialectSQLite); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() { _ = db.Close() }
}

func TestActivities_InsertSelectOrdered(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	activities := NewTable(db, DialectSQLite, ActivitySchema)

	for _, v := range []Values{
		{"title": "Tahfidz Pagi", "category": "harian", "time_info": "05:00-06:00"},
		{"title": "Haflah", "category": "tahunan"},
		{"title": "Kajian Kitab", "category": "mingguan", "description": "Kitab kuning"},
		{"title": "Apel Pagi", "category": "harian"},
	} {
		id, err := activities.Insert(ctx, v)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if id == "" {
			t.Fatal("Insert returned empty id")
		}
	}

	got, err := activities.Select(ctx, All().Order("category", true).Order("title", true))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	want := []string{"Apel Pagi", "Tahfidz Pagi", "Kajian Kitab", "Haflah"}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("row %d: Title = %q, want %q", i, got[i].Title, title)
		}
	}
	if got[1].TimeInfo != "05:00-06:00" {
		t.Errorf("TimeInfo = %q, want %q", got[1].TimeInfo, "05:00-06:00")
	}
	if got[0].Description != "" {
		t.Errorf("Description = %q, want empty for NULL", got[0].Description)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestActivities_InvalidCategoryRejected(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	activities := NewTable(db, DialectSQLite, ActivitySchema)
	_, err := activities.Insert(context.Background(), Values{"title": "X", "category": "bulanan"})
	if err == nil {
		t.Fatal("expected CHECK constraint violation")
	}
}

func TestTable_MaybeSingle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	contacts := NewTable(db, DialectSQLite, ContactSchema)

	got, err := contacts.MaybeSingle(ctx, All())
	if err != nil {
		t.Fatalf("MaybeSingle: %v", err)
	}
	if got != nil {
		t.Fatalf("MaybeSingle on empty table = %+v, want nil", got)
	}

	id, err := contacts.Insert(ctx, Values{"address": "Jl. Mawar", "whatsapp": "0812-3456"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err = contacts.MaybeSingle(ctx, All())
	if err != nil {
		t.Fatalf("MaybeSingle: %v", err)
	}
	if got == nil || got.ID != id {
		t.Fatalf("MaybeSingle = %+v, want row %s", got, id)
	}
	if got.WhatsApp != "0812-3456" || got.Email != "" {
		t.Errorf("unexpected contact %+v", got)
	}
}

func TestTable_UpdateRefreshesUpdatedAt(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	gallery := NewTable(db, DialectSQLite, GallerySchema)

	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	gallery.now = func() time.Time { return start }
	id, err := gallery.Insert(ctx, Values{"title": "Santri", "image_url": "/x.jpg"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	later := start.Add(time.Hour)
	gallery.now = func() time.Time { return later }
	n, err := gallery.Update(ctx, Values{"title": "Santri Mengaji"}, Where("id", id))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Fatalf("Update affected %d rows, want 1", n)
	}

	got, err := gallery.MaybeSingle(ctx, Where("id", id))
	if err != nil || got == nil {
		t.Fatalf("MaybeSingle: %v %v", got, err)
	}
	if got.Title != "Santri Mengaji" {
		t.Errorf("Title = %q", got.Title)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}
	if !got.CreatedAt.Equal(start) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, start)
	}
}

func TestTable_DeleteAndCount(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	gallery := NewTable(db, DialectSQLite, GallerySchema)

	a, _ := gallery.Insert(ctx, Values{"title": "A", "image_url": "/a.jpg"})
	_, _ = gallery.Insert(ctx, Values{"title": "B", "image_url": "/b.jpg"})

	n, err := gallery.Delete(ctx, Where("id", a))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Errorf("Delete affected %d rows, want 1", n)
	}

	count, err := gallery.Count(ctx, All())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestTable_GteFiltersByTime(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	views := NewTable(db, DialectSQLite, PageViewSchema)

	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{
		midnight.Add(-time.Minute),
		midnight,
		midnight.Add(90 * time.Minute),
		midnight.Add(90*time.Minute + 500*time.Millisecond),
	} {
		if _, err := views.Insert(ctx, Values{"page_path": "/", "visitor_id": "v", "created_at": ts}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	n, err := views.Count(ctx, All().Gte("created_at", midnight))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count since midnight = %d, want 3", n)
	}

	n, err = views.Count(ctx, All().Gte("created_at", midnight).Lt("created_at", midnight.Add(time.Hour)))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count in first hour = %d, want 1", n)
	}
}

func TestTable_UnknownColumn(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	activities := NewTable(db, DialectSQLite, ActivitySchema)

	if _, err := activities.Select(ctx, Where("title; DROP TABLE activities", "x")); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Select err = %v, want ErrUnknownColumn", err)
	}
	if _, err := activities.Select(ctx, All().Order("nope", true)); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Select order err = %v, want ErrUnknownColumn", err)
	}
	if _, err := activities.Insert(ctx, Values{"title": "x", "bogus": 1}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Insert err = %v, want ErrUnknownColumn", err)
	}
}

func TestTable_UpdateDeleteRequireFilter(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	activities := NewTable(db, DialectSQLite, ActivitySchema)

	if _, err := activities.Update(ctx, Values{"title": "x"}, All()); !errors.Is(err, ErrUnfiltered) {
		t.Errorf("Update err = %v, want ErrUnfiltered", err)
	}
	if _, err := activities.Delete(ctx, All()); !errors.Is(err, ErrUnfiltered) {
		t.Errorf("Delete err = %v, want ErrUnfiltered", err)
	}
	if _, err := activities.Update(ctx, nil, Where("id", "1")); !errors.Is(err, ErrNoValues) {
		t.Errorf("Update err = %v, want ErrNoValues", err)
	}
}

func TestProfile_MissionRoundTrip(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	profiles := NewTable(db, DialectSQLite, ProfileSchema)

	mission, err := EncodeList([]string{"Satu", "Dua, \"tiga\""})
	if err != nil {
		t.Fatalf("EncodeList: %v", err)
	}
	if _, err := profiles.Insert(ctx, Values{"name": "PP", "mission": mission}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := profiles.MaybeSingle(ctx, All())
	if err != nil || got == nil {
		t.Fatalf("MaybeSingle: %v %v", got, err)
	}
	if len(got.Mission) != 2 || got.Mission[1] != "Dua, \"tiga\"" {
		t.Errorf("Mission = %#v", got.Mission)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Seed(ctx, db, DialectSQLite); err != nil {
			t.Fatalf("Seed #%d: %v", i+1, err)
		}
	}

	profiles := NewTable(db, DialectSQLite, ProfileSchema)
	n, err := profiles.Count(ctx, All())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("profile rows = %d, want 1", n)
	}

	p, err := profiles.MaybeSingle(ctx, All())
	if err != nil || p == nil {
		t.Fatalf("MaybeSingle: %v %v", p, err)
	}
	if p.Name != SeedProfileName {
		t.Errorf("Name = %q, want %q", p.Name, SeedProfileName)
	}

	contacts := NewTable(db, DialectSQLite, ContactSchema)
	n, err = contacts.Count(ctx, All())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("contact rows = %d, want 1", n)
	}
}

func TestUserRoles_UniquePerUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	users := NewTable(db, DialectSQLite, UserSchema)
	roles := NewTable(db, DialectSQLite, UserRoleSchema)

	uid, err := users.Insert(ctx, Values{"email": "a@b.c", "password_hash": "x"})
	if err != nil {
		t.Fatalf("Insert user: %v", err)
	}
	if _, err := roles.Insert(ctx, Values{"user_id": uid, "role": model.RoleAdmin}); err != nil {
		t.Fatalf("Insert role: %v", err)
	}
	if _, err := roles.Insert(ctx, Values{"user_id": uid, "role": model.RoleAdmin}); err == nil {
		t.Error("duplicate role insert should fail")
	}

	r, err := roles.MaybeSingle(ctx, Where("user_id", uid).Eq("role", model.RoleAdmin))
	if err != nil {
		t.Fatalf("MaybeSingle: %v", err)
	}
	if !r.IsAdmin() {
		t.Errorf("role = %+v, want admin", r)
	}
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{DialectSQLite, "a = ? AND b = ?", "a = ? AND b = ?"},
		{DialectPostgres, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{DialectPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		if got := tt.dialect.Rebind(tt.in); got != tt.want {
			t.Errorf("%s.Rebind(%q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}

func TestQuery_CopiesDoNotAlias(t *testing.T) {
	base := Where("category", "harian")
	a := base.Eq("title", "A")
	b := base.Eq("title", "B")

	if len(base.conds) != 1 {
		t.Fatalf("base mutated: %d conditions", len(base.conds))
	}
	if a.conds[1].value != "A" || b.conds[1].value != "B" {
		t.Errorf("derived queries alias each other: %v / %v", a.conds[1].value, b.conds[1].value)
	}
}

func TestDecodeList(t *testing.T) {
	got, err := DecodeList("")
	if err != nil || got != nil {
		t.Errorf("DecodeList(\"\") = %v, %v", got, err)
	}
	if _, err := DecodeList("not json"); err == nil {
		t.Error("DecodeList should fail on invalid JSON")
	}
	enc, _ := EncodeList(nil)
	if enc != "[]" {
		t.Errorf("EncodeList(nil) = %q, want []", enc)
	}
}

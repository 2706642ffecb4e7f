package manager

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/olegiv/pesantren-go/internal/store"
)

// fakeTable records calls and serves rows from memory.
type fakeTable[T any] struct {
	mu      sync.Mutex
	rows    []T
	err     error
	inserts []store.Values
	updates []store.Values
	deletes []store.Query
	block   chan struct{}
}

func (f *fakeTable[T]) Select(context.Context, store.Query) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), f.rows...), f.err
}

func (f *fakeTable[T]) MaybeSingle(context.Context, store.Query) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil || len(f.rows) == 0 {
		return nil, f.err
	}
	r := f.rows[0]
	return &r, nil
}

func (f *fakeTable[T]) Insert(_ context.Context, v store.Values) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, v)
	if f.err != nil {
		return "", f.err
	}
	return "new-id", nil
}

func (f *fakeTable[T]) Update(_ context.Context, v store.Values, _ store.Query) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, v)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func (f *fakeTable[T]) Delete(_ context.Context, q store.Query) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, q)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.rows) > 0 {
		f.rows = f.rows[1:]
	}
	return 1, nil
}

// fakeBucket records storage calls.
type fakeBucket struct {
	mu        sync.Mutex
	uploads   []string
	removed   []string
	removeErr error
}

const fakeBase = "https://cdn.example/storage/v1/object/public/gallery/"

func (b *fakeBucket) Upload(_ context.Context, p string, r io.Reader, _ int64, _ string) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, p)
	return nil
}

func (b *fakeBucket) PublicURL(p string) string { return fakeBase + p }

func (b *fakeBucket) PathFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, fakeBase) {
		return "", false
	}
	return strings.TrimPrefix(url, fakeBase), true
}

func (b *fakeBucket) Remove(_ context.Context, paths ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, paths...)
	return b.removeErr
}

func (b *fakeBucket) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads) + len(b.removed)
}

var errDB = errors.New("db unavailable")

func yes(string) bool { return true }
func no(string) bool  { return false }

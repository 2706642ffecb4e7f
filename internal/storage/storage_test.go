package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"gallery/1.jpg", false},
		{"a.png", false},
		{"", true},
		{"/abs.jpg", true},
		{"../escape.jpg", true},
		{"gallery/../../x", true},
		{"gallery//x.jpg", true},
		{"gallery\\x.jpg", true},
		{".", true},
	}

	for _, tt := range tests {
		_, err := CleanPath(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("CleanPath(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidPath) {
			t.Errorf("CleanPath(%q) err = %v, want ErrInvalidPath", tt.in, err)
		}
	}
}

func newLocal(t *testing.T) *LocalBucket {
	t.Helper()
	b, err := NewLocalBucket(t.TempDir(), "gallery", "https://pesantren.example")
	if err != nil {
		t.Fatalf("NewLocalBucket: %v", err)
	}
	return b
}

func TestLocalBucket_UploadURLRoundTrip(t *testing.T) {
	b := newLocal(t)
	ctx := context.Background()

	if err := b.Upload(ctx, "gallery/1700000000000-abc.jpg", strings.NewReader("jpeg"), 4, "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	url := b.PublicURL("gallery/1700000000000-abc.jpg")
	want := "https://pesantren.example/storage/v1/object/public/gallery/gallery/1700000000000-abc.jpg"
	if url != want {
		t.Errorf("PublicURL = %q, want %q", url, want)
	}

	p, ok := b.PathFromURL(url)
	if !ok || p != "gallery/1700000000000-abc.jpg" {
		t.Errorf("PathFromURL = (%q, %v)", p, ok)
	}

	objs, err := b.List(ctx, "gallery/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objs) != 1 || objs[0].Path != "gallery/1700000000000-abc.jpg" || objs[0].Size != 4 {
		t.Errorf("List = %+v", objs)
	}
}

func TestLocalBucket_PathFromForeignURL(t *testing.T) {
	b := newLocal(t)

	for _, url := range []string{
		"",
		"/static/img/gallery-study.svg",
		"https://pesantren.example/storage/v1/object/public/other/1.jpg",
		"https://pesantren.example/storage/v1/object/public/gallery/../secret",
		"https://pesantren.example/storage/v1/object/public/gallery/",
		"://bad",
	} {
		if p, ok := b.PathFromURL(url); ok {
			t.Errorf("PathFromURL(%q) = %q, want no match", url, p)
		}
	}
}

func TestLocalBucket_PathFromURLIgnoresBase(t *testing.T) {
	b := newLocal(t)

	for _, url := range []string{
		"/storage/v1/object/public/gallery/gallery/1-a.jpg",
		"http://localhost:8080/storage/v1/object/public/gallery/gallery/1-a.jpg",
		"https://lama.example/storage/v1/object/public/gallery/gallery/1-a.jpg?v=2",
	} {
		p, ok := b.PathFromURL(url)
		if !ok || p != "gallery/1-a.jpg" {
			t.Errorf("PathFromURL(%q) = (%q, %v), want gallery/1-a.jpg", url, p, ok)
		}
	}
}

func TestLocalBucket_RemoveMissingIsNoError(t *testing.T) {
	b := newLocal(t)
	ctx := context.Background()

	_ = b.Upload(ctx, "gallery/a.jpg", strings.NewReader("a"), 1, "image/jpeg")
	if err := b.Remove(ctx, "gallery/a.jpg", "gallery/missing.jpg"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	objs, _ := b.List(ctx, "")
	if len(objs) != 0 {
		t.Errorf("List after Remove = %+v, want empty", objs)
	}

	if err := b.Remove(ctx, "../etc/passwd"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Remove(escaping path) err = %v, want ErrInvalidPath", err)
	}
}

func TestLocalBucket_Handler(t *testing.T) {
	b := newLocal(t)
	_ = b.Upload(context.Background(), "gallery/x.txt", strings.NewReader("hello"), 5, "text/plain")

	h := http.StripPrefix(PublicPrefix+"gallery/", b.Handler())

	req := httptest.NewRequest(http.MethodGet, PublicPrefix+"gallery/gallery/x.txt", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "hello" {
		t.Errorf("body = %q", body)
	}

	for _, p := range []string{"gallery/", "gallery/missing.jpg"} {
		req = httptest.NewRequest(http.MethodGet, PublicPrefix+"gallery/"+p, nil)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", p, rec.Code)
		}
	}
}

func TestS3Bucket_PublicURLs(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"aws", S3Config{Bucket: "pp", Region: "ap-southeast-1"}, "https://pp.s3.ap-southeast-1.amazonaws.com/gallery/1.jpg"},
		{"minio", S3Config{Bucket: "pp", Region: "us-east-1", Endpoint: "http://localhost:9000"}, "http://localhost:9000/pp/gallery/1.jpg"},
		{"cdn with prefix", S3Config{Bucket: "pp", Region: "us-east-1", PublicURL: "https://cdn.example/", Prefix: "site/"}, "https://cdn.example/site/gallery/1.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewS3Bucket(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("NewS3Bucket: %v", err)
			}
			url := b.PublicURL("gallery/1.jpg")
			if url != tt.want {
				t.Errorf("PublicURL = %q, want %q", url, tt.want)
			}
			p, ok := b.PathFromURL(url)
			if !ok || p != "gallery/1.jpg" {
				t.Errorf("PathFromURL = (%q, %v)", p, ok)
			}
			key, err := b.key("gallery/1.jpg")
			if err != nil || key != tt.cfg.Prefix+"gallery/1.jpg" {
				t.Errorf("key = %q, %v", key, err)
			}
		})
	}
}

// internal/catalog/client_test.go
package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000/", "secret123", 0)

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
	if c.apiKey != "secret123" {
		t.Errorf("expected apiKey=secret123, got %s", c.apiKey)
	}
	if c.httpClient.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %v", c.httpClient.Timeout)
	}
}

func TestHealthcheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := New(server.URL, "", time.Second).Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := New(server.URL, "", time.Second).Healthcheck(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Trip.kmz")
	if err := os.WriteFile(path, []byte("kmz-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/bookmarks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("secret"); got != "key" {
			t.Errorf("expected secret=key, got %s", got)
		}
		if got := r.FormValue("name"); got != "Trip" {
			t.Errorf("expected name=Trip, got %s", got)
		}
		if got := r.FormValue("accessRules"); got != "Public" {
			t.Errorf("expected accessRules=Public, got %s", got)
		}
		if _, err := uuid.Parse(r.FormValue("requestId")); err != nil {
			t.Errorf("requestId is not a uuid: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		if hdr.Filename != "Trip.kmz" || string(body) != "kmz-bytes" {
			t.Errorf("unexpected file %s: %q", hdr.Filename, body)
		}
		_ = json.NewEncoder(w).Encode(UploadResponse{ID: "srv-1"})
	}))
	defer server.Close()

	c := New(server.URL, "key", time.Second)
	id, err := c.Upload(context.Background(), path, UploadMetadata{Name: "Trip", AccessRules: "Public", AuthorID: "me"})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if id != "srv-1" {
		t.Errorf("expected id srv-1, got %s", id)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	c := New("http://localhost:59999", "", time.Second)
	if _, err := c.Upload(context.Background(), "/nonexistent/file.kmz", UploadMetadata{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUpload_ServerError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.kmz")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := New(server.URL, "", time.Second).Upload(context.Background(), path, UploadMetadata{}); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/bookmarks/srv-1/file" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	dir := t.TempDir()
	c := New(server.URL, "", time.Second)

	dest := filepath.Join(dir, "srv-1.kmz")
	if err := c.Download(context.Background(), "srv-1", dest); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("unexpected payload %q", got)
	}

	missing := filepath.Join(dir, "other.kmz")
	if err := c.Download(context.Background(), "other", missing); err == nil {
		t.Error("expected error for 404 response")
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Error("no file should be written on failure")
	}
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "imagenet-downloader" {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprint(w, "dog\ndomestic dog\n")
	}))
	defer srv.Close()

	body, err := NewClient(0).GetString(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if body != "dog\ndomestic dog\n" {
		t.Errorf("body = %q", body)
	}
}

func TestGet_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(0).Get(context.Background(), srv.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T %v", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
}

func TestDownloadFile_Success(t *testing.T) {
	payload := strings.Repeat("x", 10000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-tar")
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "n02084071.tar")

	var lastWritten int64
	n, err := NewClient(0).DownloadFile(context.Background(), srv.URL, dest, func(written, total int64) {
		lastWritten = written
	})
	if err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	if n != int64(len(payload)) || lastWritten != n {
		t.Errorf("written = %d, progress = %d, want %d", n, lastWritten, len(payload))
	}

	data, err := os.ReadFile(dest)
	if err != nil || string(data) != payload {
		t.Fatalf("unexpected file content (len %d): %v", len(data), err)
	}
	assertOnlyFile(t, dir, "n02084071.tar")
}

func TestDownloadFile_StatusErrorLeavesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := NewClient(0).DownloadFile(context.Background(), srv.URL, filepath.Join(dir, "a.tar"), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	assertOnlyFile(t, dir)
}

func TestDownloadFile_TruncatedBodyRemovesPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "only a few bytes")
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := NewClient(0).DownloadFile(context.Background(), srv.URL, filepath.Join(dir, "a.tar"), nil)
	if err == nil {
		t.Fatal("expected error for truncated body")
	}
	assertOnlyFile(t, dir)
}

func TestDownloadFile_HTMLErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>ImageNet</title></head><body><h1>Invalid   access key</h1></body></html>`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := NewClient(0).DownloadFile(context.Background(), srv.URL, filepath.Join(dir, "a.tar"), nil)

	var pageErr *ErrorPageError
	if !errors.As(err, &pageErr) {
		t.Fatalf("expected *ErrorPageError, got %T %v", err, err)
	}
	if pageErr.Message != "Invalid access key" {
		t.Errorf("Message = %q", pageErr.Message)
	}
	assertOnlyFile(t, dir)
}

func assertOnlyFile(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != len(want) {
		t.Fatalf("directory contains %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("directory contains %v, want %v", names, want)
		}
	}
}

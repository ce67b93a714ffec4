package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("IMAGENET_USERNAME", "")
	t.Setenv("IMAGENET_ACCESSKEY", "")

	settings, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if settings.MaxConcurrentDownloads != 5 {
		t.Errorf("MaxConcurrentDownloads = %d, want 5", settings.MaxConcurrentDownloads)
	}
	if settings.ValidationSplit != 10 {
		t.Errorf("ValidationSplit = %d, want 10", settings.ValidationSplit)
	}
	if settings.Credentials.Release != "latest" || settings.Credentials.Source != "stanford" {
		t.Errorf("unexpected release/source: %+v", settings.Credentials)
	}
	if !filepath.IsAbs(settings.BaseDir) {
		t.Errorf("BaseDir should be absolute, got %q", settings.BaseDir)
	}
	if err := settings.RequireCredentials(); err == nil {
		t.Error("expected missing credentials error")
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
base_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"
max_concurrent_downloads = 3
validation_split = 20

[credentials]
username = "file-user"
access_key = "file-key"

[resize]
enabled = true
max_size = 256
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMAGENET_USERNAME", "")
	t.Setenv("IMAGENET_ACCESSKEY", "env-key")

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if settings.MaxConcurrentDownloads != 3 || settings.ValidationSplit != 20 {
		t.Errorf("unexpected limits: %d / %d", settings.MaxConcurrentDownloads, settings.ValidationSplit)
	}
	if settings.Credentials.Username != "file-user" {
		t.Errorf("Username = %q, want file-user", settings.Credentials.Username)
	}
	if settings.Credentials.AccessKey != "env-key" {
		t.Errorf("AccessKey = %q, want env-key", settings.Credentials.AccessKey)
	}
	if !settings.Resize.Enabled || settings.Resize.MaxSize != 256 {
		t.Errorf("unexpected resize settings: %+v", settings.Resize)
	}
	if err := settings.RequireCredentials(); err != nil {
		t.Errorf("RequireCredentials: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero concurrency", "max_concurrent_downloads = 0", "max_concurrent_downloads"},
		{"split above range", "validation_split = 101", "validation_split"},
		{"negative split", "validation_split = -1", "validation_split"},
		{"resize without size", "[resize]\nenabled = true\nmax_size = 0", "resize.max_size"},
		{"malformed", "base_dir = ", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("IMAGENET_USERNAME", "")
	t.Setenv("IMAGENET_ACCESSKEY", "")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	settings := DefaultSettings()
	settings.BaseDir = t.TempDir()
	settings.Credentials.Username = "bob"
	settings.ValidationSplit = 15

	if err := settings.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Credentials.Username != "bob" || loaded.ValidationSplit != 15 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestExpandPath_Home(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/datasets")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "datasets") {
		t.Errorf("ExpandPath = %q, want %q", got, filepath.Join(home, "datasets"))
	}
}

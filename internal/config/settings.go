package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default endpoints of the ImageNet API.
const (
	DefaultAPIBaseURL  = "http://www.image-net.org/api/text"
	DefaultDownloadURL = "http://www.image-net.org/download/synset"
)

// Credentials identify the ImageNet account used for archive downloads.
type Credentials struct {
	Username  string `toml:"username"`
	AccessKey string `toml:"access_key"`
	Release   string `toml:"release"`
	Source    string `toml:"source"`
}

// Resize controls the optional image normalization pass.
type Resize struct {
	Enabled bool `toml:"enabled"`
	MaxSize int  `toml:"max_size"`
}

// Logging controls log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Settings holds all configuration options.
type Settings struct {
	Credentials Credentials `toml:"credentials"`

	// Endpoints
	APIBaseURL  string `toml:"api_base_url"`
	DownloadURL string `toml:"download_url"`

	// Dataset settings
	BaseDir                string `toml:"base_dir"`
	MaxConcurrentDownloads int    `toml:"max_concurrent_downloads"`
	ValidationSplit        int    `toml:"validation_split"`
	Manifest               string `toml:"manifest"`

	// External tools and transport
	TarBinary          string `toml:"tar_binary"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`

	Resize  Resize  `toml:"resize"`
	Logging Logging `toml:"logging"`

	// History records every run in a SQLite database under the base directory.
	History bool `toml:"history"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Credentials: Credentials{
			Release: "latest",
			Source:  "stanford",
		},
		APIBaseURL:             DefaultAPIBaseURL,
		DownloadURL:            DefaultDownloadURL,
		BaseDir:                ".",
		MaxConcurrentDownloads: 5,
		ValidationSplit:        10,
		TarBinary:              "tar",
		HTTPTimeoutSeconds:     0,
		Resize: Resize{
			Enabled: false,
			MaxSize: 500,
		},
		Logging: Logging{
			Level:  "warn",
			Format: "console",
		},
		History: true,
	}
}

// DefaultPath returns the default settings file location.
func DefaultPath() (string, error) {
	return ExpandPath("~/.config/imagenet-dl/config.toml")
}

// Load reads settings from a TOML file.
//
// A missing file is not an error: defaults are used. Environment variables
// IMAGENET_USERNAME and IMAGENET_ACCESSKEY override the file credentials.
// Paths are expanded and the result is validated.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(expanded)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, settings); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	settings.applyEnv()
	if err := settings.normalize(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save writes settings to a TOML file, creating parent directories.
func (s *Settings) Save(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return err
	}

	// Credentials live in this file.
	return os.WriteFile(expanded, data, 0o600)
}

// Validate ensures the settings are usable.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.BaseDir) == "" {
		return errors.New("base_dir must be set")
	}
	if s.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("max_concurrent_downloads must be at least 1, got %d", s.MaxConcurrentDownloads)
	}
	if s.ValidationSplit < 0 || s.ValidationSplit > 100 {
		return fmt.Errorf("validation_split must be between 0 and 100, got %d", s.ValidationSplit)
	}
	if strings.TrimSpace(s.APIBaseURL) == "" {
		return errors.New("api_base_url must be set")
	}
	if strings.TrimSpace(s.DownloadURL) == "" {
		return errors.New("download_url must be set")
	}
	if s.HTTPTimeoutSeconds < 0 {
		return errors.New("http_timeout_seconds must not be negative")
	}
	if s.Resize.Enabled && s.Resize.MaxSize < 1 {
		return errors.New("resize.max_size must be positive when resize.enabled is true")
	}
	return nil
}

// RequireCredentials reports an error when archive downloads cannot be
// authenticated. Metadata lookups work without credentials.
func (s *Settings) RequireCredentials() error {
	if strings.TrimSpace(s.Credentials.Username) == "" {
		return errors.New("credentials.username is required. Set IMAGENET_USERNAME or edit the config file")
	}
	if strings.TrimSpace(s.Credentials.AccessKey) == "" {
		return errors.New("credentials.access_key is required. Set IMAGENET_ACCESSKEY or edit the config file")
	}
	return nil
}

// HTTPTimeout returns the per-request timeout; zero means none.
func (s *Settings) HTTPTimeout() time.Duration {
	return time.Duration(s.HTTPTimeoutSeconds) * time.Second
}

func (s *Settings) applyEnv() {
	if v, ok := os.LookupEnv("IMAGENET_USERNAME"); ok && strings.TrimSpace(v) != "" {
		s.Credentials.Username = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("IMAGENET_ACCESSKEY"); ok && strings.TrimSpace(v) != "" {
		s.Credentials.AccessKey = strings.TrimSpace(v)
	}
}

func (s *Settings) normalize() error {
	base, err := ExpandPath(s.BaseDir)
	if err != nil {
		return err
	}
	s.BaseDir = base

	if s.Manifest != "" {
		manifest, err := ExpandPath(s.Manifest)
		if err != nil {
			return err
		}
		s.Manifest = manifest
	}

	s.APIBaseURL = strings.TrimRight(strings.TrimSpace(s.APIBaseURL), "/")
	s.DownloadURL = strings.TrimSpace(s.DownloadURL)
	if strings.TrimSpace(s.TarBinary) == "" {
		s.TarBinary = "tar"
	}
	if s.Credentials.Release == "" {
		s.Credentials.Release = "latest"
	}
	if s.Credentials.Source == "" {
		s.Credentials.Source = "stanford"
	}
	return nil
}

// ExpandPath resolves "~" and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/singleflight"

	"github.com/handiism/imagenet-downloader/internal/http"
	ioutils "github.com/handiism/imagenet-downloader/internal/io"
	"github.com/handiism/imagenet-downloader/internal/model"
)

// Credentials are the query parameters that authorize an archive download.
type Credentials struct {
	Username  string
	AccessKey string
	Release   string
	Source    string
}

// ProgressBar receives download progress for one archive.
// *progressbar.ProgressBar satisfies it.
type ProgressBar interface {
	Add64(n int64) error
	Finish() error
}

// BarFactory creates a progress bar for an archive of total bytes
// (-1 when unknown).
type BarFactory func(id model.CategoryID, total int64) ProgressBar

// FetchResult describes one Fetch call.
type FetchResult struct {
	// Skipped is true when the archive was already on disk (or fetched by a
	// concurrent call for the same path) and no bytes were transferred here.
	Skipped bool

	// Bytes is the size of the downloaded archive.
	Bytes int64
}

// NetworkError reports a failed archive download.
type NetworkError struct {
	ID  model.CategoryID
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("download %s: %v", e.ID, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Fetcher downloads synset archives.
type Fetcher struct {
	client   *http.Client
	endpoint string
	creds    Credentials
	logger   *slog.Logger
	newBar   BarFactory

	inflight singleflight.Group
}

// NewFetcher creates a Fetcher for the archive endpoint
// (for example "http://www.image-net.org/download/synset").
func NewFetcher(client *http.Client, endpoint string, creds Credentials, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		client:   client,
		endpoint: endpoint,
		creds:    creds,
		logger:   logger.With("component", "fetch"),
	}
}

// WithProgressBars makes every download report to a bar created by factory.
func (f *Fetcher) WithProgressBars(factory BarFactory) *Fetcher {
	f.newBar = factory
	return f
}

// URL returns the archive URL of id.
func (f *Fetcher) URL(id model.CategoryID) (string, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	q := u.Query()
	q.Set("wnid", string(id))
	q.Set("username", f.creds.Username)
	q.Set("accesskey", f.creds.AccessKey)
	q.Set("release", f.creds.Release)
	q.Set("src", f.creds.Source)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads the archive of target.ID to target.Path.
//
// An existing file at target.Path is never re-fetched. Concurrent calls for
// the same path share one download. A failed download leaves nothing at
// target.Path.
func (f *Fetcher) Fetch(ctx context.Context, target model.DownloadTarget) (FetchResult, error) {
	if ioutils.FileExists(target.Path) {
		f.logger.Debug("archive already present", "wnid", target.ID, "path", target.Path)
		return FetchResult{Skipped: true}, nil
	}

	leader := false
	v, err, _ := f.inflight.Do(target.Path, func() (any, error) {
		leader = true
		return f.download(ctx, target)
	})
	if err != nil {
		return FetchResult{}, err
	}
	if !leader {
		return FetchResult{Skipped: true}, nil
	}
	return v.(FetchResult), nil
}

func (f *Fetcher) download(ctx context.Context, target model.DownloadTarget) (FetchResult, error) {
	// A call that shared the previous download may arrive after it finished.
	if ioutils.FileExists(target.Path) {
		return FetchResult{Skipped: true}, nil
	}

	archiveURL, err := f.URL(target.ID)
	if err != nil {
		return FetchResult{}, &NetworkError{ID: target.ID, Err: err}
	}

	var (
		bar      ProgressBar
		reported int64
	)
	onProgress := func(written, total int64) {
		if f.newBar == nil {
			return
		}
		if bar == nil {
			bar = f.newBar(target.ID, total)
		}
		_ = bar.Add64(written - reported)
		reported = written
	}

	f.logger.Info("downloading archive", "wnid", target.ID, "path", target.Path)
	n, err := f.client.DownloadFile(ctx, archiveURL, target.Path, onProgress)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return FetchResult{}, &NetworkError{ID: target.ID, Err: redact(err)}
	}

	f.logger.Info("archive downloaded", "wnid", target.ID, "bytes", n)
	return FetchResult{Bytes: n}, nil
}

// redact hides the access key carried in transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	var statusErr *http.StatusError
	if errors.As(err, &statusErr) {
		statusErr.URL = redactURL(statusErr.URL)
	}
	var pageErr *http.ErrorPageError
	if errors.As(err, &pageErr) {
		pageErr.URL = redactURL(pageErr.URL)
	}
	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("accesskey") {
		q.Set("accesskey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

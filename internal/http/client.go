package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Client wraps HTTP operations with ImageNet-specific configuration.
//
// Client provides:
//   - Configured User-Agent header
//   - Optional per-request timeout
//   - Text fetches for the lookup API
//   - Streaming file downloads with progress tracking
//
// Example usage:
//
//	client := NewClient(0)
//
//	// Fetch a text response
//	body, err := client.GetString(ctx, "http://www.image-net.org/api/text/wordnet.synset.getwords?wnid=n02084071")
//
//	// Download file with progress
//	n, err := client.DownloadFile(ctx, archiveURL, "/data/tar/dog/n02084071.tar", func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client.
//
// A zero timeout means requests are bounded only by their context, which is
// what archive downloads need: synset archives can take many minutes.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				MaxIdleConnsPerHost:   8,
			},
		},
		userAgent: "imagenet-downloader",
	}
}

// StatusError reports a response with a status other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	// It is -1 when the server did not send a length.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 200 OK (as *StatusError)
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// GetString performs a GET request and returns the response body as a string.
//
// This is a convenience wrapper around Get for the text lookup API.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DownloadFile streams url to destPath and returns the number of bytes written.
//
// The body is written to a temporary file next to destPath and renamed into
// place only after the whole body arrived, so destPath never holds a partial
// download. On any failure the temporary file is removed.
//
// A 200 response carrying an HTML page is treated as an error page (the
// archive endpoint answers bad credentials that way) and fails with
// *ErrorPageError.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: URL to download from
//   - destPath: Local file path to save to
//   - onProgress: Optional callback called with (bytesWritten, totalBytes)
//     Pass nil to disable progress tracking
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) (int64, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if isHTML(resp.Header.Get("Content-Type")) {
		return 0, readErrorPage(url, resp.Body)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".part-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	var writer io.Writer = tmp
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   tmp,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	written, err := io.Copy(writer, resp.Body)
	if err != nil {
		return written, err
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return written, fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	if err := tmp.Close(); err != nil {
		return written, err
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return written, err
	}
	committed = true

	return written, nil
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}

// Package http provides an HTTP client configured for ImageNet API requests.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Text fetches for the lookup API
//   - Streaming file downloads with progress tracking
//   - Detection of HTML error pages served in place of archives
//
// # Basic Usage
//
//	client := http.NewClient(0)
//
//	// Fetch a text response
//	body, err := client.GetString(ctx, lookupURL)
//
//	// Download file with progress callback
//	n, err := client.DownloadFile(ctx, archiveURL, "/data/tar/dog/n02084071.tar", func(written, total int64) {
//	    fmt.Printf("%.1f%%\n", float64(written)/float64(total)*100)
//	})
//
// # Errors
//
// Non-200 responses fail with *StatusError. HTML pages returned by the
// archive endpoint fail with *ErrorPageError carrying the page's message.
package http

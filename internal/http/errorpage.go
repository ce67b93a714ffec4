package http

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxErrorPage bounds how much of an HTML error page is read.
const maxErrorPage = 64 << 10

// ErrorPageError reports an HTML page served where binary content was expected.
type ErrorPageError struct {
	URL     string
	Message string
}

func (e *ErrorPageError) Error() string {
	if e.Message == "" {
		return "server returned an HTML page instead of an archive"
	}
	return fmt.Sprintf("server returned an HTML page instead of an archive: %s", e.Message)
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func readErrorPage(url string, body io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxErrorPage))
	if err != nil {
		return &ErrorPageError{URL: url}
	}
	return &ErrorPageError{URL: url, Message: pageMessage(doc)}
}

// pageMessage picks the most specific human readable text of a page:
// an error element, then the first heading, then the title, then the body.
func pageMessage(doc *goquery.Document) string {
	for _, selector := range []string{".error, #error, .alert", "h1, h2", "title", "body"} {
		text := collapse(doc.Find(selector).First().Text())
		if text != "" {
			return truncate(text, 200)
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

package imagenet

import (
	"strings"
	"unicode"

	"github.com/handiism/imagenet-downloader/internal/model"
)

// hyponymMarker prefixes descendant lines in the hyponym response.
const hyponymMarker = "-"

// ParseHyponyms parses a newline-delimited hyponym response.
//
// Each line is trimmed, a single leading "-" marker is removed, and the
// result is trimmed again; blank lines are dropped. Order follows the
// response and duplicates are kept.
//
// Example:
//
//	ParseHyponyms("-n123\n n456 \n\n-n789")
//	// [n123 n456 n789]
//
// A line that still contains whitespace or markup after trimming fails with
// *ParseError.
func ParseHyponyms(body string) ([]model.CategoryID, error) {
	var ids []model.CategoryID
	for idx, line := range strings.Split(body, "\n") {
		token := strings.TrimSpace(line)
		token = strings.TrimPrefix(token, hyponymMarker)
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if reason := invalidToken(token); reason != "" {
			return nil, &ParseError{Line: idx + 1, Text: line, Reason: reason}
		}
		ids = append(ids, model.CategoryID(token))
	}
	return ids, nil
}

func invalidToken(token string) string {
	if strings.ContainsAny(token, "<>") {
		return "unexpected markup"
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return "unexpected whitespace inside id"
	}
	return ""
}

// splitLines returns the trimmed, non-empty lines of body.
func splitLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ImageMapping pairs an image file name with the URL it was collected from.
type ImageMapping struct {
	Name string
	URL  string
}

// ParseMappings parses a mapping response: one "<name> <url>" pair per line.
// Blank lines are ignored.
func ParseMappings(body string) ([]ImageMapping, error) {
	var mappings []ImageMapping
	for idx, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, &ParseError{Op: "mapping", Line: idx + 1, Text: line, Reason: "expected name and url"}
		}
		mappings = append(mappings, ImageMapping{Name: fields[0], URL: fields[1]})
	}
	return mappings, nil
}

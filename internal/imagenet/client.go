package imagenet

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/handiism/imagenet-downloader/internal/http"
	"github.com/handiism/imagenet-downloader/internal/model"
)

// Lookup endpoints relative to the API base URL.
const (
	hyponymPath = "/wordnet.structure.hyponym"
	wordsPath   = "/wordnet.synset.getwords"
	urlsPath    = "/imagenet.synset.geturls"
	mappingPath = "/imagenet.synset.geturls.getmapping"
)

// Client queries the ImageNet text API.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a Client for the API rooted at baseURL
// (for example "http://www.image-net.org/api/text").
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "imagenet"),
	}
}

// Resolve expands rootID into the category ids to download.
//
// When recursive is false the result is exactly [rootID] and no request is
// made. Otherwise the full hyponym list of rootID is fetched and parsed with
// ParseHyponyms; order and duplicates are preserved.
func (c *Client) Resolve(ctx context.Context, rootID model.CategoryID, recursive bool) ([]model.CategoryID, error) {
	if !recursive {
		return []model.CategoryID{rootID}, nil
	}

	body, err := c.lookup(ctx, "hyponyms", hyponymPath, rootID, url.Values{"full": {"1"}})
	if err != nil {
		return nil, err
	}

	ids, err := ParseHyponyms(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("resolved hyponyms", "wnid", rootID, "count", len(ids))
	return ids, nil
}

// Words returns the synonyms describing a synset, one per line of the response.
func (c *Client) Words(ctx context.Context, id model.CategoryID) ([]string, error) {
	body, err := c.lookup(ctx, "words", wordsPath, id, nil)
	if err != nil {
		return nil, err
	}
	return splitLines(body), nil
}

// URLs returns the image URLs ImageNet lists for a synset.
func (c *Client) URLs(ctx context.Context, id model.CategoryID) ([]string, error) {
	body, err := c.lookup(ctx, "urls", urlsPath, id, nil)
	if err != nil {
		return nil, err
	}
	return splitLines(body), nil
}

// Mapping returns the image file names of a synset with their source URLs.
func (c *Client) Mapping(ctx context.Context, id model.CategoryID) ([]ImageMapping, error) {
	body, err := c.lookup(ctx, "mapping", mappingPath, id, nil)
	if err != nil {
		return nil, err
	}
	return ParseMappings(body)
}

func (c *Client) lookup(ctx context.Context, op, path string, id model.CategoryID, extra url.Values) (string, error) {
	query := url.Values{"wnid": {string(id)}}
	for k, v := range extra {
		query[k] = v
	}
	endpoint := c.baseURL + path + "?" + query.Encode()

	body, err := c.http.GetString(ctx, endpoint)
	if err != nil {
		return "", &NetworkError{Op: op, ID: id, Err: err}
	}
	return body, nil
}

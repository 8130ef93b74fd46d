// File: internal/browser/snapshot/source.go
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// ErrNotFound is returned by a Pages source for unknown URLs.
var ErrNotFound = errors.New("page not found")

// maxBodySize caps how much of a fetched document is read.
const maxBodySize = 5 << 20

// Source supplies raw HTML for a URL.
type Source interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Pages is an in-memory Source keyed by URL. A trailing slash on the key or
// the requested URL is ignored.
type Pages map[string]string

func (p Pages) Fetch(ctx context.Context, url string) (string, error) {
	if body, ok := p[url]; ok {
		return body, nil
	}
	trimmed := strings.TrimSuffix(url, "/")
	for key, body := range p {
		if strings.TrimSuffix(key, "/") == trimmed {
			return body, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, url)
}

// FileSource serves a single HTML file for any URL.
type FileSource string

func (f FileSource) Fetch(ctx context.Context, _ string) (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// HTTPSource fetches documents over plain HTTP without running scripts.
type HTTPSource struct {
	Client    *http.Client
	UserAgent string
}

func (h HTTPSource) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(body), nil
}

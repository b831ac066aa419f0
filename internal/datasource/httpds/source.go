package httpds

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"
)

// Source is a datasource.Source reading one URL through a Client.
type Source struct {
	client *Client
	url    string
}

// NewSource binds url to c.
func NewSource(c *Client, url string) *Source {
	return &Source{client: c, url: url}
}

// URL returns the bound URL.
func (s *Source) URL() string { return s.url }

// Name derives a document name from the URL, see NameFromURL.
func (s *Source) Name() string { return NameFromURL(s.url) }

func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.client.Get(ctx, s.url)
}

// nameCleaner collapses runs of characters that are unsafe in file names.
var nameCleaner = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// NameFromURL derives a filesystem-safe name from rawURL: the last path
// segment without its extension, plus the cleaned query when there is one.
// When nothing usable remains it falls back to the xxh3 hash of the URL.
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}

	base := path.Base(u.Path)
	if base == "/" || base == "." {
		base = ""
	}
	base = strings.TrimSuffix(base, path.Ext(base))

	name := base
	if q := strings.Trim(nameCleaner.ReplaceAllString(u.RawQuery, "_"), "_"); q != "" {
		if name != "" {
			name += "_"
		}
		name += q
	}
	name = strings.Trim(nameCleaner.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		return HashString(rawURL)
	}
	return name
}

// HashString returns the xxh3 hash of s as 16 hex digits.
func HashString(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(s))
}

// Package imagecache converts remote images into inline data URIs and keeps
// the results in a bounded, expiring LRU.
package imagecache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// BytesFetcher is the subset of fetch.Fetcher the cache needs.
type BytesFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, string, error)
}

var ErrEmptyImage = errors.New("empty image body")

type Cache struct {
	lru   *expirable.LRU[string, string]
	fetch BytesFetcher
}

// New returns a cache holding at most size entries for ttl each. A size of
// zero means unbounded and a ttl of zero means entries never expire.
func New(size int, ttl time.Duration, fetch BytesFetcher) *Cache {
	return &Cache{
		lru:   expirable.NewLRU[string, string](size, nil, ttl),
		fetch: fetch,
	}
}

// DataURI returns url as a base64 data URI, fetching it on a miss.
func (c *Cache) DataURI(ctx context.Context, url string) (string, error) {
	if cached, ok := c.lru.Get(url); ok {
		return cached, nil
	}

	body, contentType, err := c.fetch.FetchBytes(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetching image: %w", err)
	}
	if len(body) == 0 {
		return "", ErrEmptyImage
	}

	uri := "data:" + mediaType(url, contentType) + ";base64," + base64.StdEncoding.EncodeToString(body)
	c.lru.Add(url, uri)
	return uri, nil
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

func mediaType(url, contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if strings.Contains(strings.ToLower(url), ".svg") {
		return "image/svg+xml"
	}
	return "image/png"
}

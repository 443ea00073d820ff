package capture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/a3tai/mcp-biodata/internal/biodata/photo"
)

// ImageLoader resolves an image source referenced by a document
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// maxRemoteImage bounds the bytes read from a remote image
const maxRemoteImage = 10 * 1024 * 1024

// SourceLoader loads inline image data, local files and http(s) URLs,
// keeping decoded images in an LRU cache
type SourceLoader struct {
	client     *http.Client
	cache      *lruCache[image.Image]
	inlineOnly bool
}

// NewSourceLoader creates a loader caching up to cacheSize decoded images.
// A nil client uses http.DefaultClient.
func NewSourceLoader(cacheSize int, client *http.Client) *SourceLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &SourceLoader{client: client, cache: newLRUCache[image.Image](cacheSize)}
}

// NewInlineLoader creates a loader that only accepts inline image data.
// File paths and URLs are rejected without being touched.
func NewInlineLoader(cacheSize int) *SourceLoader {
	l := NewSourceLoader(cacheSize, nil)
	l.inlineOnly = true
	return l
}

// Load decodes src, consulting the cache first
func (l *SourceLoader) Load(ctx context.Context, src string) (image.Image, error) {
	key := cacheKey(src)
	if img, ok := l.cache.get(key); ok {
		return img, nil
	}

	img, err := l.load(ctx, src)
	if err != nil {
		return nil, err
	}
	l.cache.put(key, img)
	return img, nil
}

// CacheStats returns statistics of the decoded image cache
func (l *SourceLoader) CacheStats() CacheStats {
	return l.cache.stats()
}

func (l *SourceLoader) load(ctx context.Context, src string) (image.Image, error) {
	switch {
	case src == "":
		return nil, fmt.Errorf("empty image source")
	case photo.IsDataURL(src):
		return photo.DecodeDataURL(src)
	case l.inlineOnly:
		return nil, fmt.Errorf("image source is not inline data")
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetch(ctx, src)
	default:
		data, err := os.ReadFile(strings.TrimPrefix(src, "file://"))
		if err != nil {
			return nil, fmt.Errorf("reading image file: %w", err)
		}
		return photo.DecodeBytes(data)
	}
}

func (l *SourceLoader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building image request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImage))
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	return photo.DecodeBytes(data)
}

// data URLs are large; key the cache by digest
func cacheKey(src string) string {
	if len(src) <= 256 {
		return src
	}
	sum := sha256.Sum256([]byte(src))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Package storage defines the object store binding used by the upload gateway.
// The MinIO implementation works with any S3-compatible provider (MinIO,
// Cloudflare R2, AWS S3); Memory keeps objects in process.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
)

// ErrOffline is returned by Ready when the store cannot currently accept writes.
var ErrOffline = errors.New("object store is offline")

// Storage is the interface for writing objects.
type Storage interface {
	// Ready reports whether the binding is usable. It must be cheap enough to
	// call on every request.
	Ready(ctx context.Context) error
	// Upload streams data to the store under the given key. size may be -1
	// when unknown.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}

// JoinURL builds the public URL of key under base. It is the same rule the
// admin client applies: absolute keys pass through, the base loses its
// trailing slash and the key gets exactly one leading slash.
func JoinURL(base, key string) string {
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL is the inverse of JoinURL. It returns false when rawURL does not
// live under base.
func KeyFromURL(base, rawURL string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// escapeKey percent-encodes every path segment of key but keeps the slashes.
func escapeKey(key string) string {
	u := url.URL{Path: key}
	return u.EscapedPath()
}

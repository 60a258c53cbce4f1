// Package blobstore is the attachment backend: it stores uploaded bytes under a
// caller-chosen key and releases them on entry deletion.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// Object describes one stored attachment payload.
type Object struct {
	Path string // backend key, passed back to Remove
	URL  string // public retrieval URL
}

// Store is implemented by the local-directory and S3 backends.
type Store interface {
	// Put writes r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error)
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// cleanKey rejects keys that could escape the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blobstore: empty key")
	}
	c := path.Clean("/" + key)[1:]
	if c == "" || c != strings.TrimPrefix(key, "/") || strings.HasPrefix(c, "..") {
		return "", fmt.Errorf("blobstore: invalid key %q", key)
	}
	return c, nil
}

// publicURL joins base and key with escaped path segments.
func publicURL(base, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segs, "/")
}

// Package storage holds uploaded property images and hands out stable
// public URLs for them. The interface is deliberately narrow so a
// bucket-backed implementation can replace the disk one without touching
// handlers.
package storage

import (
	"context"
	"io"
)

type Store interface {
	// Save writes the object and returns its public URL.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Remove deletes the object behind a URL previously returned by Save.
	// Removing an unknown URL is a no-op, not an error: image rows and
	// files can drift if a past delete half-failed, and cleanup must
	// still succeed.
	Remove(ctx context.Context, url string) error
}

// Package storage provides per-owner object storage with a local filesystem
// implementation.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an object does not exist for the owner.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidOwner is returned for an empty owner ID.
	ErrInvalidOwner = errors.New("owner id is required")
)

// ObjectInfo contains metadata about a stored object
type ObjectInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // relative to the owner directory
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for object storage operations. Objects are
// addressed by the caller's ID, so Put on an existing ID replaces it.
type Storage interface {
	Put(ctx context.Context, ownerID string, id uuid.UUID, name, contentType string, r io.Reader) (*ObjectInfo, error)

	Get(ctx context.Context, ownerID string, id uuid.UUID) (io.ReadCloser, *ObjectInfo, error)

	Delete(ctx context.Context, ownerID string, id uuid.UUID) error

	// List returns the owner's objects, newest first.
	List(ctx context.Context, ownerID string) ([]*ObjectInfo, error)

	Info(ctx context.Context, ownerID string, id uuid.UUID) (*ObjectInfo, error)

	// Owners returns every owner that has stored objects.
	Owners(ctx context.Context) ([]string, error)
}

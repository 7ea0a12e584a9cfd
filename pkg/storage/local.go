package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage implements Storage using the local filesystem. Each owner gets a
// directory holding the objects and a .meta directory of JSON metadata.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

func (s *LocalStorage) ownerDir(ownerID string) (string, error) {
	name := sanitizeFilename(strings.TrimSpace(ownerID))
	if name == "" || name == "." {
		return "", ErrInvalidOwner
	}
	return filepath.Join(s.basePath, name), nil
}

func metaPath(dir string, id uuid.UUID) string {
	return filepath.Join(dir, ".meta", id.String()+".json")
}

// Put stores an object and returns its metadata
func (s *LocalStorage) Put(ctx context.Context, ownerID string, id uuid.UUID, name, contentType string, r io.Reader) (*ObjectInfo, error) {
	dir, err := s.ownerDir(ownerID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create owner directory: %w", err)
	}

	// a replaced object may have had a different name
	if old, err := s.Info(ctx, ownerID, id); err == nil {
		_ = os.Remove(filepath.Join(dir, old.Path))
	}

	stored := fmt.Sprintf("%s_%s", id.String(), sanitizeFilename(name))
	path := filepath.Join(dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	info := &ObjectInfo{
		ID:          id,
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Path:        stored,
		CreatedAt:   s.now().UTC(),
	}
	if err := saveMetadata(dir, info); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return info, nil
}

// Get opens an object for reading. The caller closes the reader.
func (s *LocalStorage) Get(ctx context.Context, ownerID string, id uuid.UUID) (io.ReadCloser, *ObjectInfo, error) {
	info, err := s.Info(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	dir, _ := s.ownerDir(ownerID)

	f, err := os.Open(filepath.Join(dir, info.Path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, info, nil
}

// Delete removes an object and its metadata
func (s *LocalStorage) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	info, err := s.Info(ctx, ownerID, id)
	if err != nil {
		return err
	}
	dir, _ := s.ownerDir(ownerID)

	if err := os.Remove(filepath.Join(dir, info.Path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if err := os.Remove(metaPath(dir, id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// List returns all objects for an owner, newest first. Unreadable metadata
// entries are skipped.
func (s *LocalStorage) List(ctx context.Context, ownerID string) ([]*ObjectInfo, error) {
	dir, err := s.ownerDir(ownerID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(dir, ".meta"))
	if errors.Is(err, fs.ErrNotExist) {
		return []*ObjectInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	objects := make([]*ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		info, err := s.Info(ctx, ownerID, id)
		if err != nil {
			continue
		}
		objects = append(objects, info)
	}

	slices.SortFunc(objects, func(a, b *ObjectInfo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return objects, nil
}

// Info returns metadata for an object without opening it
func (s *LocalStorage) Info(_ context.Context, ownerID string, id uuid.UUID) (*ObjectInfo, error) {
	dir, err := s.ownerDir(ownerID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(metaPath(dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info ObjectInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &info, nil
}

// Owners returns the owner directories under the base path, sorted.
func (s *LocalStorage) Owners(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	owners := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			owners = append(owners, entry.Name())
		}
	}
	return owners, nil
}

func saveMetadata(dir string, info *ObjectInfo) error {
	if err := os.MkdirAll(filepath.Join(dir, ".meta"), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath(dir, info.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename removes unsafe characters from file and directory names
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

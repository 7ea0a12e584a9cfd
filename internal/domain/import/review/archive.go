package review

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-import/pkg/storage"
)

const batchContentType = "application/json"

// ArchivedBatch lists a stored preview without loading it.
type ArchivedBatch struct {
	ID        uuid.UUID `json:"id"`
	Document  string    `json:"document"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive keeps preview batches per user so a review can be resumed before the
// import is committed.
type Archive struct {
	store storage.Storage
}

func NewArchive(store storage.Storage) *Archive {
	return &Archive{store: store}
}

// Save stores b under its ID, replacing an earlier save of the same batch.
func (a *Archive) Save(ctx context.Context, userID string, b *Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	if _, err := a.store.Put(ctx, userID, b.ID, b.Document, batchContentType, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to archive batch %s: %w", b.ID, err)
	}
	return nil
}

// Load returns a stored batch. A missing batch wraps storage.ErrNotFound.
func (a *Archive) Load(ctx context.Context, userID string, id uuid.UUID) (*Batch, error) {
	rc, _, err := a.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var b Batch
	if err := json.NewDecoder(rc).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", id, err)
	}
	return &b, nil
}

// List returns the user's stored batches, newest first.
func (a *Archive) List(ctx context.Context, userID string) ([]ArchivedBatch, error) {
	objects, err := a.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ArchivedBatch, 0, len(objects))
	for _, o := range objects {
		out = append(out, ArchivedBatch{ID: o.ID, Document: o.Name, Size: o.Size, CreatedAt: o.CreatedAt})
	}
	return out, nil
}

func (a *Archive) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return a.store.Delete(ctx, userID, id)
}

// Prune deletes every stored batch created before cutoff and returns how many
// were removed. It keeps going past per-batch failures and returns the first.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	owners, err := a.store.Owners(ctx)
	if err != nil {
		return 0, err
	}

	var (
		removed  int
		firstErr error
	)
	for _, userID := range owners {
		objects, err := a.store.List(ctx, userID)
		if err != nil {
			firstErr = cmp.Or(firstErr, err)
			continue
		}
		for _, o := range objects {
			if !o.CreatedAt.Before(cutoff) {
				continue
			}
			if err := a.store.Delete(ctx, userID, o.ID); err != nil {
				firstErr = cmp.Or(firstErr, err)
				continue
			}
			removed++
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
	}
	return removed, firstErr
}

package ports

import (
	"context"

	"itl-resource-backend/internal/domain/models"
)

// Store is the injected backing collection for resource records. The core
// assumes nothing about the storage engine beyond this mapping contract:
// records are keyed by their composite uniqueness key and additionally
// addressable by secondary id, and iteration observes insertion order.
//
// Implementations must be safe for concurrent use; reads must not block
// unrelated writes.
type Store interface {
	// Get returns the record stored under key, or ok=false.
	Get(ctx context.Context, key string) (rec *models.ResourceRecord, ok bool, err error)

	// GetBySecondaryID returns the record carrying the given secondary id,
	// or ok=false.
	GetBySecondaryID(ctx context.Context, secondaryID string) (rec *models.ResourceRecord, ok bool, err error)

	// Set stores rec under key, replacing any previous record. A replaced
	// key keeps its original insertion position.
	Set(ctx context.Context, key string, rec *models.ResourceRecord) error

	// Delete removes the record under key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Iterate calls consume for every record in insertion order until the
	// end or the first error, which is returned unchanged.
	Iterate(ctx context.Context, consume func(*models.ResourceRecord) error) error
}

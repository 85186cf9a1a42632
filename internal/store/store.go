package store

import (
	"context"
	"errors"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

// ErrNotFound is returned when a requested memory does not exist.
var ErrNotFound = errors.New("memory not found")

// ErrUnavailable marks connection and query failures against the vector
// database. Callers match it with errors.Is to distinguish a broken backend
// from an empty result.
var ErrUnavailable = errors.New("vector store unavailable")

// Store is the storage collaborator: one vector collection per memory
// category, every record tagged with its owning user. Implementations must
// be safe for concurrent use; a single long-lived client is constructed at
// process start and shared.
type Store interface {
	// EnsureCollections creates the per-category collections if missing.
	EnsureCollections(ctx context.Context) error

	// Insert stores a record with its embedding in the collection for the
	// record's category and returns the assigned ID.
	Insert(ctx context.Context, record models.MemoryRecord, vector []float32) (string, error)

	// Search finds the memories most similar to the query vector within one
	// category collection, filtered by user.
	Search(ctx context.Context, vector []float32, userID string, category models.MemoryCategory, limit uint64, extra *SearchFilters) ([]models.SearchHit, error)

	// Count returns how many memories a user has in one category.
	Count(ctx context.Context, userID string, category models.MemoryCategory) (int64, error)

	// DeleteUser removes all of a user's memories from one category.
	DeleteUser(ctx context.Context, userID string, category models.MemoryCategory) error

	// Stats returns statistics for one category collection.
	Stats(ctx context.Context, category models.MemoryCategory) (*models.CollectionStats, error)

	// Reset drops and recreates one category collection.
	Reset(ctx context.Context, category models.MemoryCategory) error

	// Close releases the underlying connection.
	Close() error
}

// SearchFilters narrows a similarity search beyond the mandatory user
// filter. Nil pointers mean no constraint.
type SearchFilters struct {
	Source   *string `json:"source,omitempty"`
	Speaker  *string `json:"speaker,omitempty"`
	FactType *string `json:"fact_type,omitempty"`
}

package embedder

import (
	"context"
	"errors"
)

// ErrEncodingFailed marks embedding provider failures. Callers match it
// with errors.Is to distinguish encoder trouble from storage trouble.
var ErrEncodingFailed = errors.New("embedding failed")

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns vector embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

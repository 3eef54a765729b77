// Package embedder provides interfaces for embedding and captioning providers.
//
// It defines the Provider interface that all embedding implementations must
// satisfy, enabling text-to-vector conversion for similarity search and
// image-to-text captioning for remembering visual content.
package embedder

import (
	"context"
	"errors"
)

// Sentinel errors reported by providers.
var (
	// ErrEmbeddingUnavailable indicates the embedding model is not initialized
	// or not reachable. Retrieval callers are expected to degrade gracefully.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

	// ErrCaptioningUnavailable indicates the provider cannot caption images.
	ErrCaptioningUnavailable = errors.New("captioning model unavailable")
)

// Provider defines the interface for embedding providers.
//
// All embedding implementations (OpenAI, Qwen, etc.) must implement this
// interface. Providers that cannot caption images return
// ErrCaptioningUnavailable from Caption.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple text strings into vector embeddings.
	//
	// This method is more efficient than calling Embed multiple times,
	// as it can batch process requests.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Caption converts raw image bytes into a short textual description.
	//
	// The caption is what gets embedded and remembered for image content.
	Caption(ctx context.Context, image []byte) (string, error)

	// Dimensions returns the dimension of embedding vectors produced by this
	// provider. All vectors a store accepts must have this length.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}

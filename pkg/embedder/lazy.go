package embedder

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory builds an underlying provider on first use.
//
// Factories are typically expensive (model download, connection setup), which
// is why Lazy defers them until the first embedding request.
type Factory func(ctx context.Context) (Provider, error)

// Lazy is a Provider whose underlying provider is initialized on first use.
//
// Initialization is single-flight: concurrent callers hitting a not-yet-ready
// Lazy all wait on one factory invocation instead of triggering duplicate
// loads. A failed initialization is not cached, so a later call retries the
// factory. Failures surface as ErrEmbeddingUnavailable (or
// ErrCaptioningUnavailable from Caption) so callers can degrade gracefully.
//
// Example:
//
//	lazy := embedder.NewLazy(1536, func(ctx context.Context) (embedder.Provider, error) {
//	    return openai.NewClient(&openai.Config{APIKey: key})
//	})
//	vec, err := lazy.Embed(ctx, "hello") // first call initializes
type Lazy struct {
	factory Factory

	// declaredDims is reported by Dimensions before initialization completes.
	declaredDims int

	group singleflight.Group

	mu       sync.RWMutex
	provider Provider
}

// NewLazy creates a lazily-initialized provider.
//
// declaredDims is the dimensionality the factory's provider is expected to
// produce; it lets Dimensions answer before the first embedding call.
func NewLazy(declaredDims int, factory Factory) *Lazy {
	return &Lazy{
		factory:      factory,
		declaredDims: declaredDims,
	}
}

// ready returns the initialized provider, running the factory at most once
// across concurrent callers.
func (l *Lazy) ready(ctx context.Context) (Provider, error) {
	l.mu.RLock()
	p := l.provider
	l.mu.RUnlock()
	if p != nil {
		return p, nil
	}

	v, err, _ := l.group.Do("init", func() (interface{}, error) {
		// Another caller may have finished init while we waited on the group.
		l.mu.RLock()
		existing := l.provider
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		built, err := l.factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
		}

		l.mu.Lock()
		l.provider = built
		l.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(Provider), nil
}

// Embed converts text into a vector, initializing the provider if needed.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float64, error) {
	p, err := l.ready(ctx)
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, text)
}

// EmbedBatch converts multiple texts into vectors, initializing if needed.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	p, err := l.ready(ctx)
	if err != nil {
		return nil, err
	}
	return p.EmbedBatch(ctx, texts)
}

// Caption converts image bytes into text, initializing if needed.
//
// An initialization failure is reported as ErrCaptioningUnavailable since
// the caller asked for a caption, not an embedding.
func (l *Lazy) Caption(ctx context.Context, image []byte) (string, error) {
	p, err := l.ready(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptioningUnavailable, err)
	}
	return p.Caption(ctx, image)
}

// Dimensions returns the provider's dimensionality, or the declared one if
// initialization has not happened yet.
func (l *Lazy) Dimensions() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.provider != nil {
		return l.provider.Dimensions()
	}
	return l.declaredDims
}

// Close closes the underlying provider if it was ever initialized.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.provider != nil {
		return l.provider.Close()
	}
	return nil
}

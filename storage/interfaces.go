package storage

import (
	"context"

	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/lexical"
	"github.com/poiesic/gamerec/semantic"
)

// ArtifactRepository persists the outputs of an offline build.
// Implementations must be thread-safe and support concurrent access.
type ArtifactRepository interface {
	// SaveCorpus replaces the stored corpus. Entry order is preserved.
	SaveCorpus(ctx context.Context, entries []core.CorpusEntry) error

	// LoadCorpus returns the stored corpus in build order.
	// Returns ErrNotFound if no corpus has been saved.
	LoadCorpus(ctx context.Context) ([]core.CorpusEntry, error)

	// SaveLexical replaces the stored lexical model and its rows.
	SaveLexical(ctx context.Context, space *lexical.Space) error

	// LoadLexical returns the stored lexical model and rows.
	// Returns ErrNotFound if no lexical space has been saved.
	LoadLexical(ctx context.Context) (*lexical.Space, error)

	// SaveSemantic replaces the stored word vectors.
	SaveSemantic(ctx context.Context, model *semantic.Model) error

	// LoadSemantic returns the stored word vectors.
	// Returns ErrNotFound if no semantic model has been saved.
	LoadSemantic(ctx context.Context) (*semantic.Model, error)

	// SaveManifest records the manifest of a completed build.
	SaveManifest(ctx context.Context, manifest core.Manifest) error

	// LoadManifest returns the manifest of the last completed build.
	// Returns ErrNotFound if no build has completed.
	LoadManifest(ctx context.Context) (core.Manifest, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
